package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	"github.com/crystal-mush/mushcore/pkg/boltstore"
	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/eval/functions"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
	"github.com/crystal-mush/mushcore/pkg/server"
)

type harness struct {
	bolt   string
	player int
}

func main() {
	var h harness

	rootCmd := &cobra.Command{
		Use:   "evaltest",
		Short: "Evaluate softcode expressions against a world",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := h.context()
			if err != nil {
				return err
			}
			repl(ctx, os.Stdin, cmd.OutOrStdout(), h.player)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&h.bolt, "bolt", "", "Path to bbolt database (default: minimal seeded world)")
	rootCmd.PersistentFlags().IntVar(&h.player, "player", 1, "DBRef number to use as player context")

	exprCmd := &cobra.Command{
		Use:   "expr <expression>",
		Short: "Evaluate a single expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := h.context()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), evaluate(ctx, args[0]))
			flushNotifications(ctx, cmd.OutOrStdout())
			return nil
		},
	}

	batchCmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Evaluate one expression per line; 'expr | expected' lines are checked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := h.context()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open batch file: %w", err)
			}
			defer f.Close()
			failed, err := batch(ctx, f, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d expectation(s) failed", failed)
			}
			return nil
		},
	}

	funcsCmd := &cobra.Command{
		Use:   "funcs [pattern]",
		Short: "List built-in functions, fuzzy-matched against pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := eval.NewEvalContext(gamedb.NewDatabase())
			functions.RegisterAll(ctx)
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			for _, name := range matchFunctions(ctx.Functions, pattern) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(exprCmd, batchCmd, funcsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// context builds an evaluation context over the bolt world, or over a
// freshly seeded one when no store is given.
func (h *harness) context() (*eval.EvalContext, error) {
	var db *gamedb.Database
	if h.bolt != "" {
		store, err := boltstore.Open(h.bolt)
		if err != nil {
			return nil, err
		}
		if err := store.LoadAll(); err != nil {
			store.Close()
			return nil, err
		}
		db = store.DB()
		store.Close()
		fmt.Fprintf(os.Stderr, "Loaded %d objects, %d attr definitions\n", len(db.Objects), len(db.AttrNames))
	} else {
		db = gamedb.NewDatabase()
		server.NewGame(server.DefaultConf(), db, nil, nil).Seed()
		fmt.Fprintf(os.Stderr, "Using minimal seeded world\n")
	}

	ctx := eval.NewEvalContext(db)
	player := gamedb.DBRef(h.player)
	ctx.Player, ctx.Cause, ctx.Caller = player, player, player
	functions.RegisterAll(ctx)
	return ctx, nil
}

func evaluate(ctx *eval.EvalContext, expr string) string {
	ctx.ResetLimits()
	return ctx.Exec(expr, eval.EvFCheck|eval.EvEval, nil)
}

func flushNotifications(ctx *eval.EvalContext, out io.Writer) {
	for _, n := range ctx.Notifications {
		fmt.Fprintf(out, "  [notify #%d]: %s\n", n.Target, n.Message)
	}
	ctx.Notifications = nil
}

// batch evaluates each non-comment line of in. A line of the form
// "expression | expected" is checked; it returns the number of failures.
func batch(ctx *eval.EvalContext, in io.Reader, out io.Writer) (int, error) {
	scanner := bufio.NewScanner(in)
	lineNum, failed := 0, 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		expression, expected, check := strings.Cut(line, " | ")
		result := evaluate(ctx, expression)
		if !check {
			fmt.Fprintf(out, "Line %d: %s => %s\n", lineNum, expression, result)
			continue
		}
		if result == expected {
			fmt.Fprintf(out, "[PASS] Line %d: %s\n", lineNum, expression)
			continue
		}
		failed++
		fmt.Fprintf(out, "[FAIL] Line %d: %s\n", lineNum, expression)
		fmt.Fprintf(out, "  Expected: %s\n", expected)
		fmt.Fprintf(out, "  Got:      %s\n", result)
	}
	return failed, scanner.Err()
}

func repl(ctx *eval.EvalContext, in io.Reader, out io.Writer, player int) {
	fmt.Fprintln(out, "Softcode evaluator test harness")
	fmt.Fprintf(out, "Player context: #%d\n", player)
	fmt.Fprintln(out, "Type expressions to evaluate. Ctrl+D to exit.")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "mush> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		fmt.Fprintln(out, evaluate(ctx, line))
		flushNotifications(ctx, out)
	}
}

// matchFunctions returns the registered names that fuzzily match pattern,
// best match first. An empty pattern lists everything alphabetically.
func matchFunctions(fns map[string]*eval.Function, pattern string) []string {
	names := make([]string, 0, len(fns))
	for name := range fns {
		names = append(names, name)
	}
	sort.Strings(names)
	if pattern == "" {
		return names
	}

	ranks := fuzzy.RankFindFold(pattern, names)
	sort.Stable(ranks)
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.Target
	}
	return out
}
