package diskhost

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/stackvity/fsaccess/internal/fserrors"
	"github.com/stackvity/fsaccess/internal/modern"
)

// PickerKind names the picker a Prompt is for.
type PickerKind string

const (
	PickOpen      PickerKind = "open"
	PickSave      PickerKind = "save"
	PickDirectory PickerKind = "directory"
)

// Prompt describes one picker the user is asked to answer.
type Prompt struct {
	Kind PickerKind
	// StartDir is where the picker opens, relative to the host root.
	StartDir      string
	SuggestedName string
	Multiple      bool
	Accept        []modern.AcceptType
}

// Chooser plays the user in front of a picker. Answers are paths relative to
// the host root. An empty answer, or fserrors.ErrAborted, dismisses the picker.
type Chooser interface {
	Choose(ctx context.Context, p Prompt) ([]string, error)
}

// ScriptChooser answers prompts from a fixed list, in order. Once the list is
// used up every picker is dismissed.
type ScriptChooser struct {
	mu      sync.Mutex
	answers [][]string
	prompts []Prompt
}

// NewScriptChooser queues answers. Each answer serves one prompt.
func NewScriptChooser(answers ...[]string) *ScriptChooser {
	return &ScriptChooser{answers: answers}
}

func (s *ScriptChooser) Choose(_ context.Context, p Prompt) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, p)
	if len(s.answers) == 0 {
		return nil, fserrors.ErrAborted
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

// Prompts returns every prompt seen so far.
func (s *ScriptChooser) Prompts() []Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Prompt(nil), s.prompts...)
}

// PresetChooser answers save pickers with Save when it is set and passes
// every other prompt to Next. It lets a save proceed when the prompt input is
// busy carrying the content.
type PresetChooser struct {
	Next Chooser

	mu   sync.Mutex
	save string
}

// SetSave sets the answer for save pickers. An empty path defers to Next.
func (c *PresetChooser) SetSave(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.save = p
}

func (c *PresetChooser) Choose(ctx context.Context, p Prompt) ([]string, error) {
	c.mu.Lock()
	save := c.save
	c.mu.Unlock()
	if p.Kind == PickSave && save != "" {
		return []string{save}, nil
	}
	return c.Next.Choose(ctx, p)
}

// PromptChooser asks on Out and reads one line per picker from In. Multiple
// paths are separated by commas. A blank line or end of input dismisses.
type PromptChooser struct {
	mu    sync.Mutex
	in    io.Reader
	out   io.Writer
	once  sync.Once
	lines chan string
	err   error
}

// NewPromptChooser reads answers from in and writes questions to out.
func NewPromptChooser(in io.Reader, out io.Writer) *PromptChooser {
	return &PromptChooser{in: in, out: out, lines: make(chan string)}
}

// read feeds lines until in is exhausted. It outlives cancelled prompts so a
// line typed late answers the next picker instead of being lost.
func (c *PromptChooser) read() {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
	c.err = scanner.Err()
	close(c.lines)
}

func (c *PromptChooser) Choose(ctx context.Context, p Prompt) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.once.Do(func() { go c.read() })

	fmt.Fprint(c.out, question(p))
	var line string
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			if c.err != nil {
				return nil, c.err
			}
			return nil, fserrors.ErrAborted
		}
		line = l
	}

	var paths []string
	for _, field := range strings.Split(line, ",") {
		if field = strings.TrimSpace(field); field != "" {
			paths = append(paths, field)
		}
	}
	return paths, nil
}

func question(p Prompt) string {
	var b strings.Builder
	switch p.Kind {
	case PickOpen:
		if p.Multiple {
			b.WriteString("Open files (comma separated)")
		} else {
			b.WriteString("Open file")
		}
	case PickSave:
		fmt.Fprintf(&b, "Save as [%s]", p.SuggestedName)
	case PickDirectory:
		b.WriteString("Open directory")
	}
	if p.StartDir != "" {
		fmt.Fprintf(&b, " in %s", p.StartDir)
	}
	var accepts []string
	for _, t := range p.Accept {
		for mt, exts := range t.Accept {
			accepts = append(accepts, strings.TrimSpace(mt+" "+strings.Join(exts, " ")))
		}
	}
	if len(accepts) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(accepts, "; "))
	}
	b.WriteString(": ")
	return b.String()
}
