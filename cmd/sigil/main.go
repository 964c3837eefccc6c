package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/rphilander/sigil"
	"github.com/rphilander/sigil/ext/sqlite"
)

func main() {
	evalFlag := flag.String("e", "", "evaluate an expression and exit")
	flag.Parse()

	scope := sigil.Builtins()
	store := sqlite.Register(scope)
	defer store.Close()

	if *evalFlag != "" {
		result, err := evalSource(*evalFlag, scope)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(sigil.ExprString(result))
		return
	}

	if flag.NArg() > 0 {
		if err := runFile(flag.Arg(0), scope); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	repl(scope)
}

// evalSource evaluates every expression in src and returns the last
// result.
func evalSource(src string, scope *sigil.Scope) (any, error) {
	exprs, err := sigil.ReadAll(src)
	if err != nil {
		return nil, err
	}
	var result any
	for _, e := range exprs {
		result, err = sigil.Eval(e, scope)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func runFile(path string, scope *sigil.Scope) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = evalSource(string(data), scope)
	return err
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sigil_history")
}

// isIncomplete reports whether a parse error means the input just needs
// more lines.
func isIncomplete(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unclosed call") ||
		strings.Contains(msg, "unclosed string") ||
		strings.Contains(msg, "unexpected end of input")
}

func repl(scope *sigil.Scope) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := historyPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	pending := ""
	for {
		prompt := "sigil> "
		if pending != "" {
			prompt = "  ...> "
		}
		input, err := line.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			pending = ""
			continue
		}
		if err == io.EOF {
			fmt.Println()
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read: %v\n", err)
			break
		}

		src := pending + input
		if strings.TrimSpace(src) == "" {
			continue
		}

		exprs, err := sigil.ReadAll(src)
		if err != nil {
			if isIncomplete(err) {
				pending = src + "\n"
				continue
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			pending = ""
			continue
		}
		pending = ""
		line.AppendHistory(src)

		for _, e := range exprs {
			result, err := sigil.Eval(e, scope)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				break
			}
			fmt.Println(sigil.ExprString(result))
		}
	}

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
}
