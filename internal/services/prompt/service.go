// Package prompt provides the interactive terminal questions of a run.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrInterrupted is returned when the operator aborts a prompt with Ctrl-C.
var ErrInterrupted = errors.New("prompt interrupted")

// Service defines the interface for interactive prompts.
type Service interface {
	Input(message string) (string, error)
	MultiSelect(message string, options []string) ([]string, error)
	Confirm(message string) (bool, error)
}

// Impl implements Service on top of survey.
type Impl struct {
	opts []survey.AskOpt
}

// New creates a prompt service bound to the process terminal.
func New() *Impl {
	return &Impl{}
}

// NewWithStdio creates a prompt service reading from in and writing to out.
func NewWithStdio(in terminal.FileReader, out terminal.FileWriter, errOut terminal.FileWriter) *Impl {
	return &Impl{opts: []survey.AskOpt{survey.WithStdio(in, out, errOut)}}
}

// Input asks a free-text question. Surrounding whitespace is trimmed.
func (s *Impl) Input(message string) (string, error) {
	var answer string
	if err := survey.AskOne(&survey.Input{Message: message}, &answer, s.opts...); err != nil {
		return "", wrap(err)
	}
	return strings.TrimSpace(answer), nil
}

// MultiSelect asks the operator to pick any subset of options. The result keeps
// the order of options.
func (s *Impl) MultiSelect(message string, options []string) ([]string, error) {
	if len(options) == 0 {
		return nil, nil
	}

	var answer []string
	q := &survey.MultiSelect{
		Message:  message,
		Options:  options,
		PageSize: 20,
	}
	if err := survey.AskOne(q, &answer, s.opts...); err != nil {
		return nil, wrap(err)
	}
	return answer, nil
}

// Confirm asks a yes/no question defaulting to no.
func (s *Impl) Confirm(message string) (bool, error) {
	var answer bool
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &answer, s.opts...); err != nil {
		return false, wrap(err)
	}
	return answer, nil
}

func wrap(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrInterrupted
	}
	return fmt.Errorf("prompt failed: %w", err)
}
