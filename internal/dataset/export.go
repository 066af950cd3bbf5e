// Package dataset moves interview data in and out of spreadsheet and YAML
// files.
package dataset

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"voice-interviewer-go/internal/aggregator"
	"voice-interviewer-go/internal/types"
)

const (
	conversationSheet = "Conversation"
	summarySheet      = "Summary"
)

var conversationHeader = []interface{}{
	"#", "Role", "Timestamp", "Content", "Emotion", "Confidence", "Engagement",
	"Authenticity", "Flags", "Source", "Avg Volume", "Speech Rate", "Avg Pause (ms)",
}

// WriteConversation writes the session as an XLSX workbook with a
// Conversation sheet and a Summary sheet.
func WriteConversation(w io.Writer, sessionID string, turns []types.ConversationTurn) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", conversationSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("style: %w", err)
	}

	if err := f.SetSheetRow(conversationSheet, "A1", &conversationHeader); err != nil {
		return err
	}
	for i, t := range turns {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(conversationSheet, cell, turnRow(i+1, t)); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_ = f.SetRowStyle(conversationSheet, 1, 1, bold)
	_ = f.SetColWidth(conversationSheet, "C", "C", 24)
	_ = f.SetColWidth(conversationSheet, "D", "D", 60)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	ins := aggregator.Summarize(turns)
	rows := [][]interface{}{
		{"Session", sessionID},
		{"Turns", ins.Turns},
		{"Responses", ins.Responses},
		{"Dominant emotion", string(ins.Dominant)},
		{"Avg engagement", ins.AvgEngagement},
		{"Avg confidence", ins.AvgConfidence},
		{"Avg authenticity", ins.AvgAuthenticity},
	}
	for _, e := range types.Emotions {
		rows = append(rows, []interface{}{"Count " + string(e), ins.EmotionCounts[e]})
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return err
		}
	}
	_ = f.SetColStyle(summarySheet, "A", bold)
	_ = f.SetColWidth(summarySheet, "A", "A", 20)

	return f.Write(w)
}

func turnRow(n int, t types.ConversationTurn) *[]interface{} {
	row := []interface{}{n, string(t.Role), t.Timestamp.Format(time.RFC3339), t.Content}
	if e := t.Emotion; e != nil {
		row = append(row, string(e.Emotion), e.Confidence, e.Engagement,
			e.Authenticity.Score, strings.Join(e.Authenticity.Flags, ", "), string(e.Source))
	} else {
		row = append(row, "", "", "", "", "", "")
	}
	if m := t.VoiceMetrics; m != nil {
		row = append(row, m.AvgVolume, m.SpeechRate, m.AvgPause)
	}
	return &row
}
