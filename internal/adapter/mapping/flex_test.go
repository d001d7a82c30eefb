package mapping

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestFlexScalars(t *testing.T) {
	var v struct {
		A FlexInt    `json:"a"`
		B FlexInt    `json:"b"`
		C FlexFloat  `json:"c"`
		D FlexBool   `json:"d"`
		E FlexBool   `json:"e"`
		F FlexString `json:"f"`
		G FlexInt    `json:"g"`
		H FlexBool   `json:"h"`
	}
	body := `{"a":"42","b":7.9,"c":"1.5","d":"1","e":0,"f":12,"g":{"x":1},"h":"no"}`
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != 42 || v.B != 7 || v.C != 1.5 || !bool(v.D) || bool(v.E) || v.F != "12" || v.G != 0 || bool(v.H) {
		t.Fatalf("unexpected decode %+v", v)
	}
}

func TestFlexIDs(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`[3,"1",3,-2,0,"x"]`, "[3 1]"},
		{`"4, 5,,5"`, "[4 5]"},
		{`{"2":9,"0":8,"10":7}`, "[8 9 7]"},
		{`6`, "[6]"},
		{`null`, "[]"},
		{`{bad`, "[]"},
	}
	for _, tc := range cases {
		var ids FlexIDs
		if err := ids.UnmarshalJSON([]byte(tc.in)); err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		if got := fmt.Sprint([]int64(ids)); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.in, got, tc.want)
		}
	}
}

func TestFlexStrings(t *testing.T) {
	var v FlexStrings
	_ = v.UnmarshalJSON([]byte(`["a.mp3", " ", 5, null]`))
	if fmt.Sprint([]string(v)) != "[a.mp3 5]" {
		t.Fatalf("unexpected strings %v", v)
	}
	_ = v.UnmarshalJSON([]byte(`"b.mp3"`))
	if len(v) != 1 || v[0] != "b.mp3" {
		t.Fatalf("single string not wrapped: %v", v)
	}
}

func TestFlexTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"2025-03-10T08:00:00Z"`, "2025-03-10T08:00:00Z"},
		{`"2025-03-10 08:00:00"`, "2025-03-10T08:00:00Z"},
		{`1741593600`, "2025-03-10T08:00:00Z"},
		{`"yesterday"`, ""},
	}
	for _, tc := range cases {
		var v FlexTime
		_ = v.UnmarshalJSON([]byte(tc.in))
		got := ""
		if !v.IsZero() {
			got = v.Format("2006-01-02T15:04:05Z07:00")
		}
		if got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.in, got, tc.want)
		}
	}
}
