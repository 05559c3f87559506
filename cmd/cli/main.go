package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nickyhof/flintdb"
	"github.com/nickyhof/flintdb/config"
	"github.com/nickyhof/flintdb/logging"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the shell state. At most one table or generic file is open.
type CLI struct {
	out         io.Writer
	baseDir     string // empty keeps created tables in memory
	table       *flintdb.Table
	file        *flintdb.GenericFile
	current     string
	history     []string
	historyFile string
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	baseDir := flag.String("baseDir", "", "Directory for tables created with CREATE TABLE (memory if empty)")
	script := flag.String("script", "", "File of shell commands to execute (non-interactive)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging, Version)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
	defer logger.Close()
	flintdb.Configure(cfg, logger.Logger)

	cli := newCLI(os.Stdout, *baseDir)
	cli.historyFile = getHistoryPath()
	defer cli.shutdown()

	if *script != "" {
		if err := cli.importFile(*script); err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			cli.shutdown()
			os.Exit(1)
		}
		return
	}

	printBanner()
	if *baseDir == "" {
		fmt.Printf("%sCreated tables are kept in memory%s\n", SuccessColor, ResetColor)
	} else {
		fmt.Printf("%sCreating tables in: %s%s\n", SuccessColor, *baseDir, ResetColor)
	}
	cli.loadHistory()
	cli.run(os.Stdin)
}

func newCLI(out io.Writer, baseDir string) *CLI {
	return &CLI{
		out:     out,
		baseDir: baseDir,
		history: make([]string, 0),
	}
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("FlintDB v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   Tables and flat files, one shell    ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run(in io.Reader) {
	reader := bufio.NewReader(in)
	var multiLineBuffer strings.Builder

	for {
		fmt.Fprint(cli.out, cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			cli.saveHistory()
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		if multiLineBuffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(input), ".") {
			cli.addToHistory(strings.TrimSpace(input))
			if !cli.handleCommand(input) {
				cli.saveHistory()
				return
			}
			continue
		}

		// Descriptors span lines until the closing semicolon
		multiLineBuffer.WriteString(input)
		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString("\n")
			continue
		}
		stmt := strings.TrimSuffix(trimmed, ";")
		multiLineBuffer.Reset()
		if strings.TrimSpace(stmt) == "" {
			continue
		}

		cli.addToHistory(strings.ReplaceAll(stmt, "\n", " ") + ";")
		if err := cli.execute(stmt); err != nil {
			cli.fail(err)
		}
	}
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}

	part := ""
	if cli.current != "" {
		part = fmt.Sprintf(" (%s)", filepath.Base(cli.current))
	}

	return fmt.Sprintf("%sflintdb%s>%s ", PromptColor, part, ResetColor)
}

func (cli *CLI) fail(err error) {
	fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
}

func (cli *CLI) ok(format string, args ...any) {
	fmt.Fprintf(cli.out, "%s✓ %s%s\n", SuccessColor, fmt.Sprintf(format, args...), ResetColor)
}

func (cli *CLI) usage(text string) {
	fmt.Fprintf(cli.out, "%s✗ Usage: %s%s\n", ErrorColor, text, ResetColor)
}

// handleCommand runs one dot command. It returns false when the shell
// should exit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return true
	}
	args := parts[1:]

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
		return false

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".open", ".file":
		if len(args) == 0 || len(args) > 2 {
			cli.usage(parts[0] + " <name> [rw]")
			break
		}
		mode := flintdb.ReadOnly
		if len(args) == 2 && strings.EqualFold(args[1], "rw") {
			mode = flintdb.ReadWrite
		}
		var err error
		if strings.EqualFold(parts[0], ".open") {
			err = cli.openTable(args[0], mode, nil)
		} else {
			err = cli.openFile(args[0], mode)
		}
		if err != nil {
			cli.fail(err)
		} else {
			cli.ok("Opened %s (%s)", args[0], mode)
		}

	case ".close":
		if cli.current == "" {
			cli.usage(".open or .file first")
			break
		}
		name := cli.current
		if err := cli.closeCurrent(); err != nil {
			cli.fail(err)
		} else {
			cli.ok("Closed %s", name)
		}

	case ".schema":
		cli.showSchema()

	case ".rows":
		cli.showRows()

	case ".find":
		cli.find(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), parts[0])))

	case ".read":
		if len(args) != 1 {
			cli.usage(".read <rowid>")
			break
		}
		cli.read(args[0])

	case ".delete":
		if len(args) != 1 {
			cli.usage(".delete <rowid>")
			break
		}
		cli.deleteRow(args[0])

	case ".restore":
		if len(args) != 1 {
			cli.usage(".restore <commit>")
			break
		}
		cli.restore(args[0])

	case ".history":
		if len(args) > 0 && cli.table != nil {
			cli.showCommits(args[0])
		} else {
			cli.printHistory()
		}

	case ".drop":
		if len(args) != 1 {
			cli.usage(".drop <name>")
			break
		}
		if err := cli.drop(args[0]); err != nil {
			cli.fail(err)
		} else {
			cli.ok("Dropped %s", args[0])
		}

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".version":
		fmt.Fprintf(cli.out, "FlintDB version %s\n", Version)

	case ".import":
		if len(args) > 0 {
			if err := cli.importFile(args[0]); err != nil {
				cli.fail(err)
			}
		} else {
			cli.usage(".import <file>")
		}

	default:
		fmt.Fprintf(cli.out, "%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) printHelp() {
	w := cli.out
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  .help, .h            Show this help message")
	fmt.Fprintln(w, "  .quit, .exit         Exit the shell")
	fmt.Fprintln(w, "  .open <name> [rw]    Open a table (read-only unless rw)")
	fmt.Fprintln(w, "  .file <name> [rw]    Open a TSV, CSV, JSONL or parquet file")
	fmt.Fprintln(w, "  .close               Close the open table or file")
	fmt.Fprintln(w, "  .schema              Show the descriptor of the open table or file")
	fmt.Fprintln(w, "  .rows                Count rows")
	fmt.Fprintln(w, "  .find [filter]       List matching rows, e.g. .find WHERE age >= 31")
	fmt.Fprintln(w, "  .read <rowid>        Show one table row")
	fmt.Fprintln(w, "  .delete <rowid>      Delete one table row")
	fmt.Fprintln(w, "  .history [n]         Show table commits, or shell history without a table")
	fmt.Fprintln(w, "  .restore <commit>    Roll the table back to a commit id or unique prefix")
	fmt.Fprintln(w, "  .drop <name>         Remove a table or file")
	fmt.Fprintln(w, "  .import <file>       Execute shell commands from a file")
	fmt.Fprintln(w, "  .clear               Clear the screen")
	fmt.Fprintln(w, "  .version             Show version info")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sStatements:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  CREATE TABLE <name> (<column> <type>, ..., PRIMARY KEY (<column>));")
	fmt.Fprintln(w, "  INSERT INTO <open table or file> VALUES (<value>, ...);")
	fmt.Fprintln(w)
}

// execute runs a semicolon terminated statement.
func (cli *CLI) execute(stmt string) error {
	fields := strings.Fields(stmt)
	if len(fields) < 2 {
		return fmt.Errorf("unsupported statement: %s", truncate(stmt, 50))
	}
	switch strings.ToUpper(fields[0] + " " + fields[1]) {
	case "CREATE TABLE":
		return cli.createTable(stmt)
	case "INSERT INTO":
		return cli.insert(stmt)
	}
	return fmt.Errorf("unsupported statement: %s", truncate(stmt, 50))
}

func (cli *CLI) createTable(stmt string) error {
	meta, err := flintdb.ParseMeta(stmt)
	if err != nil {
		return err
	}
	defer meta.Close()

	name := meta.Name()
	if cli.baseDir == "" {
		if err := meta.SetStorage("memory"); err != nil {
			return err
		}
	} else {
		if err := os.MkdirAll(cli.baseDir, 0755); err != nil {
			return err
		}
		name = filepath.Join(cli.baseDir, name+".flintdb")
	}
	if err := cli.openTable(name, flintdb.ReadWrite, meta); err != nil {
		return err
	}
	cli.ok("Created %s", name)
	return nil
}

// insert writes one row into the open table or file. The target name must
// match the meta name of what is open.
func (cli *CLI) insert(stmt string) error {
	if cli.current == "" {
		return fmt.Errorf("no table or file is open")
	}
	open := strings.Index(stmt, "(")
	if open < 0 || !strings.HasSuffix(strings.TrimSpace(stmt), ")") {
		return fmt.Errorf("expected VALUES (...)")
	}
	values := splitValues(strings.TrimSuffix(strings.TrimSpace(stmt[open+1:]), ")"))

	var row *flintdb.Row
	var err error
	if cli.table != nil {
		row, err = cli.table.CreateRow()
	} else {
		row, err = cli.file.CreateRow()
	}
	if err != nil {
		return err
	}
	defer row.Close()

	if len(values) != row.Len() {
		return fmt.Errorf("expected %d values, got %d", row.Len(), len(values))
	}
	for i, v := range values {
		if strings.EqualFold(v, "NULL") {
			err = row.SetNull(i)
		} else {
			err = row.SetString(i, v)
		}
		if err != nil {
			return err
		}
	}

	if cli.table != nil {
		id, err := cli.table.Apply(row)
		if err != nil {
			return err
		}
		cli.ok("Row %d written", id)
		return nil
	}
	if err := cli.file.Write(row); err != nil {
		return err
	}
	cli.ok("Row written")
	return nil
}

// splitValues splits a VALUES list on commas outside quotes and strips
// the quotes.
func splitValues(list string) []string {
	var values []string
	var current strings.Builder
	quote := byte(0)
	for i := 0; i < len(list); i++ {
		ch := list[i]
		switch {
		case quote != 0 && ch == quote:
			quote = 0
		case quote != 0:
			current.WriteByte(ch)
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == ',':
			values = append(values, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	if strings.TrimSpace(list) != "" {
		values = append(values, strings.TrimSpace(current.String()))
	}
	return values
}

func (cli *CLI) openTable(name string, mode flintdb.Mode, meta *flintdb.Meta) error {
	table, err := flintdb.OpenTable(name, mode, meta)
	if err != nil {
		return err
	}
	if err := cli.closeCurrent(); err != nil {
		table.Close()
		return err
	}
	cli.table = table
	cli.current = name
	return nil
}

func (cli *CLI) openFile(name string, mode flintdb.Mode) error {
	file, err := flintdb.OpenGenericFile(name, mode, nil)
	if err != nil {
		return err
	}
	if err := cli.closeCurrent(); err != nil {
		file.Close()
		return err
	}
	cli.file = file
	cli.current = name
	return nil
}

func (cli *CLI) closeCurrent() error {
	var err error
	if cli.table != nil {
		err = cli.table.Close()
	}
	if cli.file != nil {
		err = cli.file.Close()
	}
	cli.table, cli.file, cli.current = nil, nil, ""
	return err
}

func (cli *CLI) drop(name string) error {
	if name == cli.current {
		if err := cli.closeCurrent(); err != nil {
			return err
		}
	}
	if strings.HasSuffix(name, ".flintdb") || !strings.Contains(filepath.Base(name), ".") {
		return flintdb.DropTable(name)
	}
	return flintdb.DropGenericFile(name)
}

func (cli *CLI) meta() (*flintdb.Meta, error) {
	switch {
	case cli.table != nil:
		return cli.table.Meta()
	case cli.file != nil:
		return cli.file.Meta()
	}
	return nil, fmt.Errorf("no table or file is open")
}

func (cli *CLI) showSchema() {
	meta, err := cli.meta()
	if err != nil {
		cli.fail(err)
		return
	}
	defer meta.Close()
	text, err := meta.ToSQL()
	if err != nil {
		cli.fail(err)
		return
	}
	fmt.Fprintln(cli.out, text)
}

func (cli *CLI) showRows() {
	var n int64
	var err error
	switch {
	case cli.table != nil:
		n, err = cli.table.Rows()
	case cli.file != nil:
		n, err = cli.file.Rows()
	default:
		err = fmt.Errorf("no table or file is open")
	}
	if err != nil {
		cli.fail(err)
		return
	}
	fmt.Fprintf(cli.out, "%d rows\n", n)
}

func (cli *CLI) find(filter string) {
	var count int
	var err error
	switch {
	case cli.table != nil:
		count, err = cli.findTable(filter)
	case cli.file != nil:
		count, err = cli.findFile(filter)
	default:
		err = fmt.Errorf("no table or file is open")
	}
	if err != nil {
		cli.fail(err)
		return
	}
	fmt.Fprintf(cli.out, "(%d rows)\n", count)
}

func (cli *CLI) findTable(filter string) (int, error) {
	cursor, err := cli.table.Find(filter)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	count := 0
	for id, err := range cursor.All() {
		if err != nil {
			return count, err
		}
		row, err := cli.table.Read(id)
		if err != nil {
			return count, err
		}
		fmt.Fprintf(cli.out, "  %6d  %s\n", id, row)
		count++
	}
	return count, nil
}

func (cli *CLI) findFile(filter string) (int, error) {
	cursor, err := cli.file.Find(filter)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	count := 0
	for row, err := range cursor.All() {
		if err != nil {
			return count, err
		}
		fmt.Fprintf(cli.out, "  %s\n", row)
		count++
	}
	return count, nil
}

func (cli *CLI) read(arg string) {
	if cli.table == nil {
		cli.fail(fmt.Errorf("no table is open"))
		return
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		cli.fail(fmt.Errorf("invalid row id %q", arg))
		return
	}
	row, err := cli.table.Read(id)
	if err != nil {
		cli.fail(err)
		return
	}
	fmt.Fprintf(cli.out, "  %6d  %s\n", id, row)
}

func (cli *CLI) deleteRow(arg string) {
	if cli.table == nil {
		cli.fail(fmt.Errorf("no table is open"))
		return
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		cli.fail(fmt.Errorf("invalid row id %q", arg))
		return
	}
	if err := cli.table.DeleteAt(id); err != nil {
		cli.fail(err)
		return
	}
	cli.ok("Row %d deleted", id)
}

// restore accepts the shortened ids printed by .history.
func (cli *CLI) restore(prefix string) {
	if cli.table == nil {
		cli.fail(fmt.Errorf("no table is open"))
		return
	}
	commits, err := cli.table.History(0)
	if err != nil {
		cli.fail(err)
		return
	}
	var matches []string
	for _, c := range commits {
		if strings.HasPrefix(c.Id, strings.TrimSuffix(prefix, "...")) {
			matches = append(matches, c.Id)
		}
	}
	switch len(matches) {
	case 0:
		cli.fail(fmt.Errorf("no commit matches %q", prefix))
	case 1:
		if err := cli.table.Restore(matches[0]); err != nil {
			cli.fail(err)
			return
		}
		cli.ok("Restored to %s", truncate(matches[0], 10))
	default:
		cli.fail(fmt.Errorf("commit prefix %q is ambiguous", prefix))
	}
}

func (cli *CLI) showCommits(arg string) {
	limit, err := strconv.Atoi(arg)
	if err != nil || limit < 0 {
		cli.usage(".history [n]")
		return
	}
	commits, err := cli.table.History(limit)
	if err != nil {
		cli.fail(err)
		return
	}
	for _, c := range commits {
		fmt.Fprintf(cli.out, "  %s  %s  %s\n", truncate(c.Id, 10), c.When.Format("2006-01-02 15:04:05"), c.Author)
	}
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".flintdb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// shutdown closes what is open and releases the engine.
func (cli *CLI) shutdown() {
	if err := cli.closeCurrent(); err != nil {
		cli.fail(err)
	}
	if err := flintdb.Cleanup(); err != nil {
		cli.fail(err)
	}
}

// importFile executes the dot commands and statements of a script.
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	successCount := 0
	errorCount := 0

	for i, stmt := range splitStatements(string(data)) {
		if strings.HasPrefix(stmt, ".") {
			cli.handleCommand(stmt)
			successCount++
			continue
		}
		if err := cli.execute(stmt); err != nil {
			fmt.Fprintf(cli.out, "%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(stmt, 50), ResetColor)
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			errorCount++
			continue
		}
		successCount++
	}

	fmt.Fprintf(cli.out, "\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return nil
}

// splitStatements splits a script into dot commands, one per line, and
// semicolon terminated statements.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(content); i++ {
		ch := content[i]

		// Dot commands run to the end of the line
		if !inString && strings.TrimSpace(current.String()) == "" && ch == '.' {
			end := strings.IndexByte(content[i:], '\n')
			if end < 0 {
				end = len(content) - i
			}
			statements = append(statements, strings.TrimSpace(content[i:i+end]))
			current.Reset()
			i += end
			continue
		}

		if (ch == '\'' || ch == '"') && (i == 0 || content[i-1] != '\\') {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
		}

		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			continue
		}

		if !inString && ch == ';' {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	stmt := strings.TrimSpace(current.String())
	if stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
