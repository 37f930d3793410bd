package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/validation"
)

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// InitOptions drives the validation init flow.
type InitOptions struct {
	Names     []string
	Batch     string            // batch mode name, empty when not given
	Keyword   string            // keyword used by KEYWORD modes
	Overrides map[string]string // per-transition mode text
	Prompt    bool              // ask for transitions left undecided
	In        io.Reader
	Out       io.Writer
}

// InitValidation resolves the mode of every transition. Overrides win over
// the batch mode; without either, prompting (when enabled) asks per
// transition, and anything still undecided is NONE.
func InitValidation(opts InitOptions) (map[string]domain.ValidationMode, error) {
	var batch domain.ValidationMode
	if opts.Batch != "" {
		mode, err := validation.ParseBatch(opts.Batch, opts.Keyword)
		if err != nil {
			return nil, Usage(err)
		}
		batch = mode
	}

	modes, err := validation.Resolve(opts.Names, batch, opts.Overrides, opts.Keyword)
	if err != nil {
		return nil, Usage(err)
	}
	if batch != nil || !opts.Prompt {
		return modes, nil
	}

	var pending []string
	for _, name := range opts.Names {
		if _, overridden := opts.Overrides[name]; !overridden {
			pending = append(pending, name)
		}
	}
	prompted, err := PromptModes(opts.In, opts.Out, pending, opts.Keyword)
	if err != nil {
		return nil, err
	}
	for name, mode := range prompted {
		modes[name] = mode
	}
	return modes, nil
}

// PromptModes asks for the mode of each transition, one per line. An empty
// answer is NONE; invalid answers are asked again. End of input leaves the
// remaining transitions at NONE.
func PromptModes(in io.Reader, out io.Writer, names []string, keyword string) (map[string]domain.ValidationMode, error) {
	modes := make(map[string]domain.ValidationMode, len(names))
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Validation mode per transition: none, keyword, pull-request or KEYWORD[\"<word>\"].")
	for i := 0; i < len(names); {
		name := names[i]
		fmt.Fprintf(out, "%s [none]: ", name)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("failed to read answer: %w", err)
			}
			fmt.Fprintln(out)
			for _, rest := range names[i:] {
				modes[rest] = domain.NoneMode{}
			}
			return modes, nil
		}

		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			modes[name] = domain.NoneMode{}
			i++
			continue
		}
		mode, err := validation.ParseFlag(answer, keyword)
		if err != nil {
			fmt.Fprintf(out, "  %v\n", err)
			continue
		}
		modes[name] = mode
		i++
	}
	return modes, nil
}
