package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"math-shorts-pipeline/internal/config"
)

var ErrEmptyBatch = errors.New("batch has no items")

// maxVariations caps how often one CSV row may be repeated
const maxVariations = 10

// LoadBatch reads batch items from a .json or .csv file.
//
// JSON is either a list of run options or {"prompts": [...]}. CSV needs a
// header; the topic column may be called topic, name or prompt, and the
// optional columns are provider, model, max_words, backend, duration and
// variations.
func LoadBatch(path string) ([]config.RunOptions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()

	var items []config.RunOptions
	if strings.EqualFold(filepath.Ext(path), ".json") {
		items, err = decodeBatchJSON(f)
	} else {
		items, err = decodeBatchCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	return items, nil
}

func decodeBatchJSON(r io.Reader) ([]config.RunOptions, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var list []config.RunOptions
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Prompts []config.RunOptions `json:"prompts"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode batch json: %w", err)
	}
	return wrapped.Prompts, nil
}

func decodeBatchCSV(r io.Reader) ([]config.RunOptions, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(row []string, names ...string) string {
		for _, n := range names {
			if i, ok := col[n]; ok && i < len(row) {
				if v := strings.TrimSpace(row[i]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	var items []config.RunOptions
	for n, row := range rows[1:] {
		item := config.RunOptions{
			Topic:    get(row, "topic", "name", "prompt"),
			Provider: get(row, "provider"),
			Model:    get(row, "model"),
			Backend:  get(row, "backend"),
		}
		if v := get(row, "max_words"); v != "" {
			if item.MaxWords, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("row %d: max_words: %w", n+2, err)
			}
		}
		if v := get(row, "duration"); v != "" {
			if item.DurationSec, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("row %d: duration: %w", n+2, err)
			}
		}
		times := 1
		if v := get(row, "variations"); v != "" {
			if times, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("row %d: variations: %w", n+2, err)
			}
			times = min(max(times, 1), maxVariations)
		}
		for range times {
			items = append(items, item)
		}
	}
	return items, nil
}
