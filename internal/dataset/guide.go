package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"voice-interviewer-go/internal/guide"
	"voice-interviewer-go/internal/logger"
	"voice-interviewer-go/internal/types"
)

// LoadGuide reads a discussion guide from a .xlsx, .yaml/.yml or .json file.
func LoadGuide(path string) (types.DiscussionGuide, error) {
	var (
		g   types.DiscussionGuide
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		g, err = loadGuideXLSX(path)
	case ".yaml", ".yml":
		g, err = loadGuideYAML(path)
	case ".json":
		g, err = loadGuideJSON(path)
	default:
		return g, fmt.Errorf("unsupported guide format %q", filepath.Ext(path))
	}
	if err != nil {
		return types.DiscussionGuide{}, err
	}
	if err := guide.Validate(&g); err != nil {
		return types.DiscussionGuide{}, err
	}
	return g, nil
}

// SaveGuide writes g as YAML.
func SaveGuide(path string, g types.DiscussionGuide) error {
	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal guide: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func loadGuideYAML(path string) (types.DiscussionGuide, error) {
	var g types.DiscussionGuide
	data, err := os.ReadFile(path)
	if err != nil {
		return g, fmt.Errorf("read: %w", err)
	}
	if err := yaml.Unmarshal(data, &g); err != nil {
		return g, fmt.Errorf("parse yaml: %w", err)
	}
	return g, nil
}

func loadGuideJSON(path string) (types.DiscussionGuide, error) {
	var g types.DiscussionGuide
	data, err := os.ReadFile(path)
	if err != nil {
		return g, fmt.Errorf("read: %w", err)
	}
	if err := json.Unmarshal(data, &g); err != nil {
		return g, fmt.Errorf("parse json: %w", err)
	}
	return g, nil
}

// loadGuideXLSX reads the first sheet: one row per question with a section
// column and a question column, detected from the header. An empty section
// cell continues the previous section. The sheet name is the guide title
// unless a "title" column is present.
func loadGuideXLSX(path string) (types.DiscussionGuide, error) {
	log := logger.New().WithField("component", "dataset.guide").WithField("path", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return types.DiscussionGuide{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return types.DiscussionGuide{}, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return types.DiscussionGuide{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return types.DiscussionGuide{}, fmt.Errorf("no data rows")
	}

	sectionIdx, questionIdx, titleIdx := -1, -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "section") || strings.Contains(l, "topic"):
			if sectionIdx == -1 {
				sectionIdx = i
			}
		case strings.Contains(l, "question") || strings.Contains(l, "prompt"):
			if questionIdx == -1 {
				questionIdx = i
			}
		case strings.Contains(l, "title") || strings.Contains(l, "guide"):
			if titleIdx == -1 {
				titleIdx = i
			}
		}
	}
	// fallback: first two columns
	if sectionIdx == -1 {
		sectionIdx = 0
	}
	if questionIdx == -1 {
		questionIdx = 1
	}
	log.WithFields(map[string]interface{}{
		"sectionIdx":  sectionIdx,
		"questionIdx": questionIdx,
		"titleIdx":    titleIdx,
	}).Debug("detected guide column indices")

	g := types.DiscussionGuide{Title: sheets[0]}
	cell := func(r []string, idx int) string {
		if idx >= 0 && idx < len(r) {
			return strings.TrimSpace(r[idx])
		}
		return ""
	}
	for _, r := range rows[1:] {
		if t := cell(r, titleIdx); t != "" && g.Title == sheets[0] {
			g.Title = t
		}
		sec := cell(r, sectionIdx)
		q := cell(r, questionIdx)
		if sec != "" && (len(g.Sections) == 0 || g.Sections[len(g.Sections)-1].Title != sec) {
			g.Sections = append(g.Sections, types.GuideSection{Title: sec, Questions: []string{}})
		}
		if q == "" {
			continue
		}
		if len(g.Sections) == 0 {
			// questions before any section heading
			continue
		}
		last := &g.Sections[len(g.Sections)-1]
		last.Questions = append(last.Questions, q)
	}
	log.WithField("sections", len(g.Sections)).Info("discussion guide loaded")
	return g, nil
}
