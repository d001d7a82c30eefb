/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eslsoft/flashdeck/internal/adapter/mapping"
	"github.com/eslsoft/flashdeck/internal/app"
	"github.com/eslsoft/flashdeck/internal/entity"
)

// dbInitCmd migrates the store schema and optionally seeds a wordset catalog.
var dbInitCmd = &cobra.Command{
	Use:   "db-init",
	Short: "Migrate the database and seed a wordset catalog",
	Long: `Migrate the database schema and seed the configured wordset from a catalog
file. The source is a local path or an http(s) URL pointing at a JSON document
{"categories": [...], "words": [...]}, optionally inside a .zip archive.
Downloads are cached. go-sqlite3 requires a CGO_ENABLED=1 build.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		batch, _ := cmd.Flags().GetInt("batch")
		cacheDir, _ := cmd.Flags().GetString("cache-dir")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		container, cleanup, err := app.InitializeStore()
		if err != nil {
			return fmt.Errorf("migrate store: %w", err)
		}
		defer cleanup()
		if source == "" {
			container.Logger.Info("schema migrated")
			return nil
		}
		return seedFromSource(cmd.Context(), container, seedOptions{
			Source:    source,
			BatchSize: batch,
			CacheDir:  cacheDir,
			NoCache:   noCache,
		})
	},
}

func init() {
	rootCmd.AddCommand(dbInitCmd)
	dbInitCmd.Flags().String("source", "", "catalog file path or URL; empty only migrates the schema")
	dbInitCmd.Flags().Int("batch", 1000, "words per upsert batch")
	dbInitCmd.Flags().String("cache-dir", "", "download cache directory (default: user cache dir/flashdeck)")
	dbInitCmd.Flags().Bool("no-cache", false, "ignore the cache and download again")
}

type seedOptions struct {
	Source    string
	BatchSize int
	CacheDir  string
	NoCache   bool
}

// catalogSeed is the on-disk catalog format. It reuses the wire DTOs so a
// fetch_categories/fetch_words dump can be loaded as is.
type catalogSeed struct {
	Categories []mapping.CategoryDTO `json:"categories"`
	Words      []mapping.WordDTO     `json:"words"`
}

func seedFromSource(ctx context.Context, container *app.StoreContainer, opts seedOptions) error {
	start := time.Now()
	logger := container.Logger.WithField("source", opts.Source)
	wordsetID := container.Config.Backend.WordsetID
	if wordsetID <= 0 {
		return entity.ErrInvalidWordsetID
	}

	path := opts.Source
	if isRemoteSource(path) {
		cacheDir, cachePath, fromCache, err := prepareCachePath(path, opts.CacheDir, opts.NoCache)
		if err != nil {
			return err
		}
		if !fromCache {
			if err := os.MkdirAll(cacheDir, 0o755); err != nil {
				return fmt.Errorf("create cache directory: %w", err)
			}
			logger.WithField("cache", cachePath).Info("downloading catalog")
			if err := downloadFile(ctx, opts.Source, cachePath); err != nil {
				return err
			}
		} else {
			logger.WithField("cache", cachePath).Info("using cached catalog")
		}
		path = cachePath
	}

	if isZipSource(opts.Source) {
		tmpDir, err := os.MkdirTemp("", "flashdeck-seed-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmpDir)
		path, err = unzipSingle(func(name string) bool { return strings.HasSuffix(name, ".json") }, path, tmpDir)
		if err != nil {
			return err
		}
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	categories, words, err := decodeCatalogSeed(f)
	if err != nil {
		return err
	}

	if err := container.Catalog.UpsertCategories(ctx, wordsetID, categories); err != nil {
		return err
	}
	total := 0
	for _, batch := range lo.Chunk(words, max(opts.BatchSize, 1)) {
		if err := container.Catalog.UpsertWords(ctx, wordsetID, batch); err != nil {
			return err
		}
		total += len(batch)
		logger.WithField("words", total).Debug("words imported")
	}
	logger.WithFields(logrus.Fields{
		"wordset_id": wordsetID,
		"categories": len(categories),
		"words":      total,
		"duration":   time.Since(start).String(),
	}).Info("catalog seeded")
	return nil
}

// decodeCatalogSeed reads a catalog document, dropping words without an id.
func decodeCatalogSeed(r io.Reader) ([]entity.Category, []entity.Word, error) {
	var seed catalogSeed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, nil, fmt.Errorf("decode catalog: %w", err)
	}
	categories := mapping.ToCategories(seed.Categories)
	words := make([]entity.Word, 0, len(seed.Words))
	for _, dto := range seed.Words {
		if w := mapping.ToWord(dto); w.ID > 0 {
			words = append(words, w)
		}
	}
	if len(categories) == 0 && len(words) == 0 {
		return nil, nil, errors.New("catalog is empty")
	}
	return categories, words, nil
}

func isRemoteSource(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func isZipSource(source string) bool {
	return strings.HasSuffix(strings.ToLower(source), ".zip")
}

func downloadFile(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	return nil
}

func unzipSingle(match func(string) bool, zipPath, dstDir string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !match(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		outPath := filepath.Join(dstDir, filepath.Base(f.Name))
		out, err := os.Create(outPath)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			return "", err
		}
		if err := out.Close(); err != nil {
			return "", err
		}
		return outPath, nil
	}
	return "", errors.New("no catalog file found in zip")
}

// prepareCachePath returns the cache directory, the cache file for url and
// whether a usable cached copy already exists.
func prepareCachePath(url, cacheDirFlag string, noCache bool) (string, string, bool, error) {
	base := cacheDirFlag
	if base == "" {
		userCache, err := os.UserCacheDir()
		if err != nil {
			return "", "", false, fmt.Errorf("resolve user cache dir: %w", err)
		}
		base = filepath.Join(userCache, "flashdeck")
	}
	ext := ".json"
	if isZipSource(url) {
		ext = ".zip"
	}
	name := fmt.Sprintf("catalog-%08x%s", crc32.ChecksumIEEE([]byte(url)), ext)
	cachePath := filepath.Join(base, name)
	if !noCache {
		if st, err := os.Stat(cachePath); err == nil && st.Size() > 0 {
			return base, cachePath, true, nil
		}
	}
	return base, cachePath, false, nil
}
