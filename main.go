package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lotas/tabvault/internal/applog"
	"github.com/lotas/tabvault/internal/bridge"
	"github.com/lotas/tabvault/internal/domain"
	"github.com/lotas/tabvault/internal/kvstore"
	"github.com/lotas/tabvault/internal/pagemeta"
	"github.com/lotas/tabvault/internal/portability"
	"github.com/lotas/tabvault/internal/registry"
	"github.com/lotas/tabvault/internal/search"
	"github.com/lotas/tabvault/internal/storage"
	"github.com/lotas/tabvault/internal/tui"
	"github.com/lotas/tabvault/internal/types"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "add":
			runAdd(os.Args[2:])
			return
		case "list":
			runList(os.Args[2:])
			return
		case "search":
			runSearch(os.Args[2:])
			return
		case "open":
			runOpen(os.Args[2:])
			return
		case "rm":
			runRemove(os.Args[2:])
			return
		case "labels":
			runLabels(os.Args[2:])
			return
		case "export":
			runExport(os.Args[2:])
			return
		case "import":
			runImport(os.Args[2:])
			return
		case "firefox-import":
			runFirefoxImport(os.Args[2:])
			return
		case "dups":
			runDups()
			return
		case "mode":
			runMode(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("tabvault", flag.ExitOnError)
	port := fs.Int("port", resolvePort(), "WebSocket port for the extension bridge")
	noBridge := fs.Bool("no-bridge", false, "Do not start the extension bridge")
	fs.Parse(os.Args[1:])

	m, db := mustOpenManager()
	defer db.Close()

	var srv *bridge.Server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !*noBridge {
		srv = bridge.New(*port)
		go srv.ListenAndServe(ctx)
	}

	reg := registry.New(m, chainOpener(srv))

	model := tui.NewModel(m, reg, srv)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`tabvault — saved-tab library with domain grouping and search

Usage:
  tabvault                                   Start the TUI (default)
    --port <n>           WebSocket port for the extension bridge (default: 19192)
    --no-bridge          Do not start the extension bridge

  tabvault add <url> [--title t] [--desc d] [--labels a,b] [--fetch]
                                             Save a tab (--fetch pulls title/description from the page)
  tabvault list [--domain d] [--label id]    List saved tabs grouped by domain
  tabvault search <query>                    Relevance-ranked search
  tabvault open <id> [--rm]                  Open a saved tab (--rm deletes it after)
  tabvault open --domain <d>                 Open every tab of a domain
  tabvault rm <id> | --domain <d> | --all    Delete tabs
  tabvault labels                            List labels
  tabvault labels add <name> [--color c]     Create a custom label
  tabvault labels rm <id>                    Delete a custom label (and strip it from tabs)
  tabvault export [--out f] [--markdown]     Export everything (JSON by default)
  tabvault import <file> [--mode merge|replace]
  tabvault firefox-import <profileDir>       Merge-import open tabs from a Firefox profile
  tabvault dups                              Report duplicate URLs
  tabvault mode [local|sync]                 Show or change the storage backend

Environment:
  TABVAULT_DB     Database file (default: ~/.local/share/tabvault/tabvault.db)
  TABVAULT_PORT   Extension bridge port (default: 19192)
`)
}

// --- Setup ---

func resolveDBPath() (string, error) {
	if p := os.Getenv("TABVAULT_DB"); p != "" {
		return p, nil
	}
	return kvstore.DefaultDBPath()
}

func resolvePort() int {
	if p := os.Getenv("TABVAULT_PORT"); p != "" {
		var port int
		if _, err := fmt.Sscanf(p, "%d", &port); err == nil && port > 0 {
			return port
		}
	}
	return 19192
}

func openManager() (*storage.Manager, *sql.DB, error) {
	path, err := resolveDBPath()
	if err != nil {
		return nil, nil, err
	}
	applog.Init(filepath.Dir(path))

	db, err := kvstore.OpenDB(path)
	if err != nil {
		return nil, nil, err
	}

	local := kvstore.NewSQLite(db, "local", 0)
	syncArea := kvstore.NewSQLite(db, "sync", storage.SyncQuotaBytes)
	m := storage.NewManager(local, syncArea)
	if err := m.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return m, db, nil
}

func mustOpenManager() (*storage.Manager, *sql.DB) {
	m, db, err := openManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	return m, db
}

// execOpener opens URLs with the platform's default browser command.
type execOpener struct{}

func (execOpener) Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// bridgeOrExec prefers the connected extension and falls back to the local
// browser command.
type bridgeOrExec struct {
	srv *bridge.Server
}

func (o bridgeOrExec) Open(url string) error {
	if o.srv != nil && o.srv.Connected() {
		return o.srv.Open(url)
	}
	return execOpener{}.Open(url)
}

func chainOpener(srv *bridge.Server) registry.Opener {
	return bridgeOrExec{srv: srv}
}

// --- Commands ---

func runAdd(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	title := fs.String("title", "", "Tab title")
	desc := fs.String("desc", "", "Tab description")
	labels := fs.String("labels", "", "Comma-separated label IDs")
	fetch := fs.Bool("fetch", false, "Fetch title/description from the page")
	fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabvault add <url> [--title t] [--desc d] [--labels a,b] [--fetch]")
		os.Exit(1)
	}
	url := fs.Arg(0)

	m, db := mustOpenManager()
	defer db.Close()
	reg := registry.New(m, nil)

	saved, err := reg.IsURLSaved(url)
	if err != nil {
		fatal(err)
	}
	if saved {
		fmt.Fprintf(os.Stderr, "Already saved: %s\n", url)
		os.Exit(1)
	}

	draft := registry.Draft{
		URL:         url,
		Title:       *title,
		Description: *desc,
	}
	if *labels != "" {
		draft.Labels = splitList(*labels)
	}

	if *fetch && (draft.Title == "" || draft.Description == "") {
		if meta, err := pagemeta.Fetch(url); err == nil {
			if draft.Title == "" {
				draft.Title = meta.Title
			}
			if draft.Description == "" {
				draft.Description = meta.Description
			}
		} else {
			fmt.Fprintf(os.Stderr, "Warning: could not fetch page metadata: %v\n", err)
		}
	}

	tab, err := reg.SaveTab(draft)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Saved %s (%s) as %s\n", tab.DisplayTitle(), tab.Domain, tab.ID)
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	domainFilter := fs.String("domain", "", "Only tabs of this domain")
	labelFilter := fs.String("label", "", "Only tabs carrying this label ID")
	fs.Parse(args)

	m, db := mustOpenManager()
	defer db.Close()
	reg := registry.New(m, nil)

	tabs, err := reg.AllTabs()
	if err != nil {
		fatal(err)
	}
	if *labelFilter != "" {
		var kept []types.Tab
		for _, t := range tabs {
			if t.HasLabel(*labelFilter) {
				kept = append(kept, t)
			}
		}
		tabs = kept
	}

	groups := sortedGroupsFiltered(tabs, *domainFilter)
	if len(groups) == 0 {
		fmt.Println("No saved tabs.")
		return
	}
	for _, g := range groups {
		fmt.Printf("%s (%d)\n", g.DisplayName, g.Count)
		for _, t := range g.Tabs {
			printTab(&t)
		}
	}
}

func sortedGroupsFiltered(tabs []types.Tab, domainFilter string) []types.DomainGroup {
	groups := domain.SortedGroups(tabs)
	if domainFilter == "" {
		return groups
	}
	var kept []types.DomainGroup
	for _, g := range groups {
		if g.Domain == domainFilter {
			kept = append(kept, g)
		}
	}
	return kept
}

func printTab(t *types.Tab) {
	line := fmt.Sprintf("  %-8s  %s", shortID(t.ID), t.DisplayTitle())
	if len(t.Labels) > 0 {
		line += " [" + strings.Join(t.Labels, ",") + "]"
	}
	fmt.Println(line)
	fmt.Printf("            %s\n", t.URL)
}

func runSearch(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabvault search <query>")
		os.Exit(1)
	}
	query := strings.Join(args, " ")

	m, db := mustOpenManager()
	defer db.Close()
	reg := registry.New(m, nil)

	tabs, err := reg.AllTabs()
	if err != nil {
		fatal(err)
	}

	results := search.Rank(tabs, query)
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, t := range results {
		printTab(&t)
	}
}

func runOpen(args []string) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	domainFlag := fs.String("domain", "", "Open every tab of this domain")
	rmAfter := fs.Bool("rm", false, "Delete the tab after opening")
	fs.Parse(reorderArgs(args))

	m, db := mustOpenManager()
	defer db.Close()
	reg := registry.New(m, execOpener{})

	if *domainFlag != "" {
		n, err := reg.OpenAllInDomain(*domainFlag)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Opened %d tabs in %s\n", n, *domainFlag)
		return
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabvault open <id> [--rm] | open --domain <d>")
		os.Exit(1)
	}

	id, err := resolveTabID(reg, fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	tab, err := reg.OpenTab(id, *rmAfter)
	if err != nil {
		fatal(err)
	}
	if tab == nil {
		fmt.Fprintf(os.Stderr, "No tab with id %s\n", fs.Arg(0))
		os.Exit(1)
	}
	fmt.Printf("Opened %s\n", tab.URL)
}

func runRemove(args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	domainFlag := fs.String("domain", "", "Delete every tab of this domain")
	all := fs.Bool("all", false, "Delete every saved tab")
	yes := fs.Bool("yes", false, "Skip confirmation prompt")
	fs.Parse(reorderArgs(args))

	m, db := mustOpenManager()
	defer db.Close()
	reg := registry.New(m, nil)

	switch {
	case *all:
		if !*yes && !confirm("Delete ALL saved tabs?") {
			fmt.Println("Aborted.")
			return
		}
		if err := reg.ClearAll(); err != nil {
			fatal(err)
		}
		fmt.Println("All tabs deleted.")

	case *domainFlag != "":
		n, err := reg.DeleteAllInDomain(*domainFlag)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Deleted %d tabs in %s\n", n, *domainFlag)

	default:
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: tabvault rm <id> | rm --domain <d> | rm --all")
			os.Exit(1)
		}
		id, err := resolveTabID(reg, fs.Arg(0))
		if err != nil {
			fatal(err)
		}
		if err := reg.DeleteTab(id); err != nil {
			fatal(err)
		}
		fmt.Println("Deleted.")
	}
}

func runLabels(args []string) {
	m, db := mustOpenManager()
	defer db.Close()

	if len(args) == 0 {
		labels, err := m.AllLabels()
		if err != nil {
			fatal(err)
		}
		for _, l := range labels {
			kind := "built-in"
			if l.IsCustom {
				kind = "custom"
			}
			fmt.Printf("%-38s %-16s %-8s %s\n", l.ID, l.Name, kind, l.Color)
		}
		return
	}

	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("labels add", flag.ExitOnError)
		color := fs.String("color", "#808080", "CSS color for the label")
		fs.Parse(reorderArgs(args[1:]))
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: tabvault labels add <name> [--color c]")
			os.Exit(1)
		}
		label, err := m.AddCustomLabel(fs.Arg(0), *color)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Created label %s (%s)\n", label.Name, label.ID)

	case "rm":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: tabvault labels rm <id>")
			os.Exit(1)
		}
		id := args[1]
		if err := m.DeleteCustomLabel(id); err != nil {
			fatal(err)
		}
		// Storage keeps its contract narrow; the cascade into tab records
		// happens here.
		reg := registry.New(m, nil)
		n, err := reg.RemoveLabelFromTabs(id)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Deleted label %s (removed from %d tabs)\n", id, n)

	default:
		fmt.Fprintf(os.Stderr, "Unknown labels command %q. Use add or rm.\n", args[0])
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	markdown := fs.Bool("markdown", false, "Export as markdown instead of JSON")
	fs.Parse(args)

	m, db := mustOpenManager()
	defer db.Close()

	var output []byte
	if *markdown {
		tabs, err := m.Tabs()
		if err != nil {
			fatal(err)
		}
		output = []byte(portability.Markdown(tabs))
	} else {
		var err error
		output, err = portability.ExportJSON(m)
		if err != nil {
			fatal(err)
		}
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, output, 0o644); err != nil {
			fatal(err)
		}
	} else {
		fmt.Print(string(output))
	}
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	mode := fs.String("mode", "merge", "Import mode: merge or replace")
	fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabvault import <file> [--mode merge|replace]")
		os.Exit(1)
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fatal(err)
	}

	m, db := mustOpenManager()
	defer db.Close()

	result, err := portability.Import(m, raw, portability.ImportMode(*mode))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Imported %d tabs (%d skipped), %d labels\n",
		result.TabsImported, result.TabsSkipped, result.LabelsImported)
}

func runFirefoxImport(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabvault firefox-import <profileDir>")
		os.Exit(1)
	}

	m, db := mustOpenManager()
	defer db.Close()

	result, err := portability.ImportFirefoxSession(m, args[0])
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Imported %d tabs from Firefox (%d already saved)\n",
		result.TabsImported, result.TabsSkipped)
}

func runDups() {
	m, db := mustOpenManager()
	defer db.Close()
	reg := registry.New(m, nil)

	groups, err := reg.Duplicates()
	if err != nil {
		fatal(err)
	}
	if len(groups) == 0 {
		fmt.Println("No duplicates.")
		return
	}
	for _, g := range groups {
		fmt.Printf("%s\n", g.URL)
		for _, t := range g.Tabs {
			fmt.Printf("  %-8s  %s\n", shortID(t.ID), t.URL)
		}
	}
}

func runMode(args []string) {
	m, db := mustOpenManager()
	defer db.Close()

	settings, err := m.Settings()
	if err != nil {
		fatal(err)
	}

	if len(args) == 0 {
		fmt.Println(settings.StorageMode)
		return
	}

	target := types.StorageMode(args[0])
	if !target.Valid() {
		fmt.Fprintf(os.Stderr, "Unknown storage mode %q. Use local or sync.\n", args[0])
		os.Exit(1)
	}
	if target == settings.StorageMode {
		fmt.Printf("Already using %s storage.\n", target)
		return
	}

	if _, err := m.UpdateSettings(storage.SettingsPatch{StorageMode: &target}); err != nil {
		fatal(err)
	}
	fmt.Printf("Switched to %s storage.\n", target)
}

// --- Helpers ---

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func splitList(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveTabID accepts a full ID or an unambiguous prefix.
func resolveTabID(reg *registry.Registry, arg string) (string, error) {
	tabs, err := reg.AllTabs()
	if err != nil {
		return "", err
	}
	var match string
	for _, t := range tabs {
		if t.ID == arg {
			return arg, nil
		}
		if strings.HasPrefix(t.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("ambiguous tab id prefix %q", arg)
			}
			match = t.ID
		}
	}
	if match == "" {
		return arg, nil // let the operation report not-found its own way
	}
	return match, nil
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
