package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"xscraper/pkg/models"
)

// maxPromptAttempts bounds re-asking after invalid input.
const maxPromptAttempts = 5

// prompter asks for scrape inputs that were not given as flags.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// ask prints label and returns the trimmed answer. EOF with no input is an error.
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) yesNo(label string) (bool, error) {
	for i := 0; i < maxPromptAttempts; i++ {
		answer, err := p.ask(label + " (y/n): ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
	return false, fmt.Errorf("no valid answer after %d attempts", maxPromptAttempts)
}

func (p *prompter) mode() (models.Mode, error) {
	for i := 0; i < maxPromptAttempts; i++ {
		answer, err := p.ask("Search by hashtag, user or keyword? ")
		if err != nil {
			return "", err
		}
		m, err := models.ParseMode(answer)
		if err == nil {
			return m, nil
		}
		fmt.Fprintln(p.out, "Invalid mode. Choose hashtag, user or keyword.")
	}
	return "", fmt.Errorf("no valid mode after %d attempts", maxPromptAttempts)
}

func (p *prompter) query(mode models.Mode) (string, error) {
	label := map[models.Mode]string{
		models.ModeHashtag: "Hashtag (without #): ",
		models.ModeUser:    "Username (without @): ",
		models.ModeKeyword: "Keyword or phrase: ",
	}[mode]
	for i := 0; i < maxPromptAttempts; i++ {
		answer, err := p.ask(label)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		fmt.Fprintln(p.out, "The query cannot be empty.")
	}
	return "", fmt.Errorf("no query after %d attempts", maxPromptAttempts)
}

func (p *prompter) recency() (models.Recency, error) {
	for i := 0; i < maxPromptAttempts; i++ {
		answer, err := p.ask("Latest or top posts? [latest]: ")
		if err != nil {
			return "", err
		}
		r, err := models.ParseRecency(answer)
		if err == nil {
			return r, nil
		}
		fmt.Fprintln(p.out, "Invalid choice. Choose latest or top.")
	}
	return "", fmt.Errorf("no valid recency after %d attempts", maxPromptAttempts)
}

// count never fails on bad input: anything that is not a positive number
// falls back to def.
func (p *prompter) count(def int) (int, error) {
	answer, err := p.ask(fmt.Sprintf("How many posts? [%d]: ", def))
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(answer)
	if convErr != nil || n <= 0 {
		if answer != "" {
			fmt.Fprintf(p.out, "Invalid number, using %d.\n", def)
		}
		return def, nil
	}
	return n, nil
}

// date asks for an optional YYYY-MM-DD date. Empty input means no bound.
func (p *prompter) date(label string) (*time.Time, error) {
	for i := 0; i < maxPromptAttempts; i++ {
		answer, err := p.ask(label + " (YYYY-MM-DD, empty for none): ")
		if err != nil {
			return nil, err
		}
		d, err := models.ParseDate(answer)
		if err == nil {
			return d, nil
		}
		fmt.Fprintln(p.out, "Invalid date format.")
	}
	return nil, fmt.Errorf("no valid date after %d attempts", maxPromptAttempts)
}
