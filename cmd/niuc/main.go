// Command niuc compiles a single Niu source file to C++ (spec.md §6): parse,
// resolve types and trait impls, audit mutability, print C++ to stdout.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"gopkg.in/yaml.v3"

	"github.com/niuc-lang/niuc/internal/ast"
	"github.com/niuc-lang/niuc/internal/errors"
	"github.com/niuc-lang/niuc/internal/pipeline"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	flag.Usage = printHelp
	jsonFlag := flag.Bool("json", false, "print errors as a JSON envelope instead of text")
	dumpTypes := flag.String("dump-types", "", "write the resolved annotation table to this YAML file")
	flag.Parse()

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "build":
		requirePath(1)
		runBuild(flag.Arg(1), *jsonFlag, *dumpTypes)
	case "check":
		requirePath(1)
		runCheck(flag.Arg(1), *jsonFlag, *dumpTypes)
	case "repl":
		runREPL()
	default:
		// No subcommand, single invocation form: `niuc <path>` builds.
		runBuild(flag.Arg(0), *jsonFlag, *dumpTypes)
	}
}

func requirePath(argIdx int) {
	if flag.NArg() <= argIdx {
		fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(bold("niuc") + " — compiles a Niu source file to C++")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  niuc <path>             parse, typecheck, and print C++ (default mode)")
	fmt.Println("  niuc build <path>       same as above")
	fmt.Println("  niuc check <path>       parse and typecheck only, no C++ emitted")
	fmt.Println("  niuc repl               line-at-a-time typecheck REPL")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	return string(data)
}

func runBuild(path string, asJSON bool, dumpTypesPath string) {
	src := readFile(path)
	res, err := pipeline.Compile(src, path)
	if err != nil {
		reportFailure(err, asJSON)
		os.Exit(1)
	}
	if dumpTypesPath != "" {
		writeTypeDump(res, dumpTypesPath)
	}
	fmt.Print(res.CPP)
}

func runCheck(path string, asJSON bool, dumpTypesPath string) {
	src := readFile(path)
	res, err := pipeline.Check(src, path)
	if err != nil {
		reportFailure(err, asJSON)
		os.Exit(1)
	}
	if dumpTypesPath != "" {
		writeTypeDump(res, dumpTypesPath)
	}
	fmt.Println(green("ok"))
}

func writeTypeDump(res *pipeline.Result, path string) {
	data, err := yaml.Marshal(res.Driver.Table.Dump())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: could not marshal type dump: %v\n", yellow("Warning"), err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: could not write %s: %v\n", yellow("Warning"), path, err)
	}
}

// reportFailure prints err's structured report, as JSON when asJSON is set,
// matching spec.md §7's single-error-message contract.
func reportFailure(err error, asJSON bool) {
	rep, ok := errors.AsReport(err)
	if !ok {
		fmt.Println(err)
		return
	}
	if asJSON {
		out, jsonErr := errors.EncodeJSON([]*errors.Report{rep}, false)
		if jsonErr != nil {
			fmt.Println(err)
			return
		}
		fmt.Println(out)
		return
	}
	fmt.Printf("%s [%s]: %s\n", red("Error"), rep.Code, rep.Message)
}

// runREPL typechecks one line at a time: a line that neither ends in ";"
// nor starts with "{" is wrapped as a trivial top-level block `{ <line> }`
// (other lines are checked as written), and each is compiled fresh, since niuc has no
// incremental/session state to carry bindings across lines — mirroring the
// teacher's REPL shape (liner-backed line editing, colored prompts) without
// its evaluator, which this compiler doesn't have.
func runREPL() {
	fmt.Println(bold("niuc") + " REPL — one expression per line, Ctrl-D to exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := replHistoryPath()
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	for {
		input, err := line.Prompt("niuc> ")
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		evalREPLLine(input)
	}

	if f, err := os.Create(historyPath); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
	fmt.Println()
}

func evalREPLLine(input string) {
	src := input
	if !strings.HasSuffix(strings.TrimSpace(input), ";") && !strings.HasPrefix(strings.TrimSpace(input), "{") {
		src = "{ " + input + " }"
	}
	res, err := pipeline.Check(src, "<repl>")
	if err != nil {
		reportFailure(err, false)
		return
	}
	if res.Program.Main == nil || res.Program.Main.Trailing == nil {
		fmt.Println(green("ok"))
		return
	}
	ty, ok := res.Driver.Table.Lookup(ast.ExprTag(res.Program.Main.Trailing), 0)
	if !ok {
		fmt.Println(green("ok"))
		return
	}
	fmt.Printf("%s %s\n", green("=>"), ty.String())
}

func replHistoryPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".niuc_history"
	}
	return dir + "/.niuc_history"
}
