// SPDX-License-Identifier: MPL-2.0

// Package tui provides the confirmation prompts used by transactions.
// Prompts are line-oriented so birb stays usable over plain pipes and in
// provisioning scripts; styling is cosmetic only.
package tui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true)
	dangerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444"))
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// Prompter asks the operator yes/no questions on a terminal-ish stream.
type Prompter struct {
	In  io.Reader
	Out io.Writer
	// AssumeYes short-circuits ordinary confirmations. High-friction
	// confirmations always prompt; --yes is not a license to delete glibc.
	AssumeYes bool

	// reader buffers In across prompts. One transaction can ask several
	// questions; a per-prompt buffer would swallow piped answers queued
	// behind the first newline.
	reader *bufio.Reader
}

// Confirm asks an ordinary yes/no question, defaulting to no. With
// AssumeYes set the question is answered affirmatively without prompting.
func (p *Prompter) Confirm(question string) (bool, error) {
	if p.AssumeYes {
		return true, nil
	}

	fmt.Fprintf(p.Out, "%s %s ", promptStyle.Render(question), hintStyle.Render("[y/N]"))
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ConfirmTyped asks a high-friction question that is only answered
// affirmatively by typing token verbatim. Used for protected-package
// uninstalls; AssumeYes does not bypass it.
func (p *Prompter) ConfirmTyped(question, token string) (bool, error) {
	fmt.Fprintf(p.Out, "%s\n%s ",
		dangerStyle.Render(question),
		hintStyle.Render(fmt.Sprintf("Type %q to proceed, anything else to cancel:", token)))
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	return line == token, nil
}

func (p *Prompter) readLine() (string, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			// EOF with no answer means "no": a closed stdin must never
			// silently approve a mutation.
			return "", nil
		}
		return "", fmt.Errorf("read confirmation: %w", err)
	}
	return strings.TrimSpace(line), nil
}
