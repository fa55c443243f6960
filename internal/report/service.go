package report

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/signintech/gopdf"

	"triage-intake-agent/internal/triage"
)

type TelegramClient interface {
	SendMessage(chatID int64, text string) error
	SendDocument(chatID int64, fileData []byte, fileName string) error
}

// Service pushes a PDF case summary to the on-call clinician chat when a case
// first escalates to emergency.
type Service struct {
	tgClient     TelegramClient
	onCallChatID int64
}

func NewService(tg TelegramClient, onCallChatID int64) *Service {
	return &Service{
		tgClient:     tg,
		onCallChatID: onCallChatID,
	}
}

func (s *Service) SendEmergencyReport(ctx context.Context, userID string, snap triage.Snapshot) error {
	log.Printf("Generating emergency report for session %s...", snap.SessionID)

	pdfData, err := buildPDF(userID, snap)
	if err != nil {
		return err
	}

	alert := fmt.Sprintf("EMERGENCY ESCALATION\nSession: %s\nSeverity score: %d\nOrgan system: %s",
		snap.SessionID, snap.SeverityScore, snap.OrganSystem)
	if err := s.tgClient.SendMessage(s.onCallChatID, alert); err != nil {
		log.Printf("Error sending escalation alert: %v", err)
	}

	fileName := fmt.Sprintf("case_%s.pdf", snap.SessionID)
	if err := s.tgClient.SendDocument(s.onCallChatID, pdfData, fileName); err != nil {
		return fmt.Errorf("failed to send case report: %w", err)
	}
	log.Printf("Emergency report for session %s sent.", snap.SessionID)
	return nil
}

func buildPDF(userID string, snap triage.Snapshot) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	// Try multiple common font paths (Alpine, Debian).
	fontPaths := []string{
		"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	}

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load font for PDF, ensure ttf-dejavu is installed: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Emergency Case Summary")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", time.Now().Format("02.01.2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("User: %s", userID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Session: %s", snap.SessionID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Urgency tier: %s", snap.UrgencyTier))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Organ system: %s", snap.OrganSystem))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Reported symptoms:")
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	for i, msg := range snap.SymptomHistory {
		label := "Follow-up"
		if i == 0 {
			label = "Initial"
		}
		lines, _ := pdf.SplitText(fmt.Sprintf("- [%s] %s", label, msg), 500)
		for _, l := range lines {
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
		pdf.Br(5)
	}
	pdf.Br(10)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Severity score: %d", snap.SeverityScore))
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(snap.SeverityFactors) {
		pdf.Cell(nil, fmt.Sprintf("- %s: +%d", name, snap.SeverityFactors[name]))
		pdf.Br(12)
	}
	pdf.Br(10)

	if len(snap.RiskWeights) > 0 {
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return nil, err
		}
		pdf.Cell(nil, "Differential emphasis:")
		pdf.Br(15)
		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, err
		}
		for _, name := range sortedWeightKeys(snap.RiskWeights) {
			pdf.Cell(nil, fmt.Sprintf("- %s: %.2f", name, snap.RiskWeights[name]))
			pdf.Br(12)
		}
	}

	pdf.SetY(270)
	if err := pdf.SetFont("DejaVu", "", 9); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Generated by the symptom intake assistant. Not a diagnosis.")

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedWeightKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
