package sigil

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// HistoryEntry records one eval handled by the server. Result holds the
// wire form of the value so the entry serializes as-is.
type HistoryEntry struct {
	Expr      string
	Result    any
	Error     string // non-empty on error
	Timestamp string // ISO 8601
}

// Server is the session daemon. A single actor goroutine owns the root
// scope, definitions replay from append-only logs on startup, and
// clients speak the length-prefixed JSON protocol over a unix socket.
type Server struct {
	root       *Scope
	newRoot    func() *Scope
	protected  map[string]bool // names bound by newRoot; not redefinable
	dir        string
	logFile    *os.File
	activeLib  string   // "" = session, else library name
	libraries  []string // ordered library names from manifest
	defSources map[string]string
	defOwner   map[string]string // name → library name ("" = session)
	listener   net.Listener
	requests   chan serverRequest
	history    []HistoryEntry
	maxHistory int
	shutdown   sync.Once
}

type serverRequest struct {
	msg      map[string]any
	response chan map[string]any
}

// --- Path helpers ---

func (srv *Server) sessionLogPath() string {
	return filepath.Join(srv.dir, "session.sigil")
}

func (srv *Server) libraryPath(name string) string {
	return filepath.Join(srv.dir, name+".sigil")
}

func (srv *Server) manifestPath() string {
	return filepath.Join(srv.dir, "library-order.txt")
}

// ActiveLibrary returns the currently open library name, or "" for
// session.
func (srv *Server) ActiveLibrary() string {
	return srv.activeLib
}

// NewServer builds a server rooted at dir. newRoot builds a fresh root
// scope; it runs once on startup and again on reset.
func NewServer(dir, sockPath string, newRoot func() *Scope) (*Server, error) {
	// Clean up a stale socket
	os.Remove(sockPath)

	srv := &Server{
		newRoot:    newRoot,
		dir:        dir,
		defSources: make(map[string]string),
		defOwner:   make(map[string]string),
		requests:   make(chan serverRequest, 64),
		maxHistory: 1000,
	}
	srv.root = newRoot()
	srv.installServerBuiltins()
	srv.protected = protectedNames(srv.root)

	if err := srv.loadLibraries(); err != nil {
		return nil, fmt.Errorf("libraries: %w", err)
	}
	if err := srv.replayFile(srv.sessionLogPath(), ""); err != nil {
		return nil, fmt.Errorf("replay session: %w", err)
	}

	f, err := os.OpenFile(srv.sessionLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	srv.logFile = f

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}
	srv.listener = listener

	return srv, nil
}

func (srv *Server) installServerBuiltins() {
	srv.root.Define("history", NewBuiltin("history", srv.builtinHistory))
	srv.root.Define("names", NewBuiltin("names", srv.builtinNames))
	srv.root.Define("source", NewBuiltin("source", srv.builtinSource))
}

func protectedNames(root *Scope) map[string]bool {
	m := make(map[string]bool)
	for _, name := range root.LocalNames() {
		m[name] = true
	}
	return m
}

// Run starts the actor goroutine and accepts connections. Blocks until
// shutdown.
func (srv *Server) Run() {
	go srv.actorLoop()
	srv.acceptLoop()
}

func (srv *Server) acceptLoop() {
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			return
		}
		go srv.handleClientConnection(conn)
	}
}

// Shutdown cleanly stops the server. Safe to call more than once.
func (srv *Server) Shutdown() {
	srv.shutdown.Do(func() {
		srv.listener.Close()
		close(srv.requests)
		if srv.logFile != nil {
			srv.logFile.Close()
		}
	})
}

// actorLoop is the single goroutine that owns the root scope and the
// definition records.
func (srv *Server) actorLoop() {
	for req := range srv.requests {
		req.response <- srv.handleRequest(req.msg)
	}
}

// sendToActor sends a request to the actor and waits for the response.
func (srv *Server) sendToActor(msg map[string]any) map[string]any {
	resp := make(chan map[string]any, 1)
	srv.requests <- serverRequest{msg: msg, response: resp}
	return <-resp
}

func (srv *Server) handleRequest(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)

	op, _ := msg["op"].(string)
	if op == "" {
		// Empty request or no op: return manual
		return srv.serverManual(id)
	}

	switch op {
	case "eval":
		return srv.handleEval(id, msg)
	case "expand":
		return srv.handleExpand(id, msg)
	case "define":
		return srv.handleDefine(id, msg)
	case "undefine":
		return srv.handleUndefine(id, msg)
	case "names":
		return srv.handleNames(id)
	case "history":
		return srv.handleHistory(id, msg)
	case "library-create":
		return srv.handleLibraryOp(id, msg, "library-create", srv.libraryCreate)
	case "library-delete":
		return srv.handleLibraryOp(id, msg, "library-delete", srv.libraryDelete)
	case "library-open":
		return srv.handleLibraryOp(id, msg, "library-open", srv.libraryOpen)
	case "library-compact":
		return srv.handleLibraryOp(id, msg, "library-compact", srv.libraryCompact)
	case "library-close":
		return srv.handleLibraryClose(id)
	case "library-list":
		return srv.handleLibraryList(id)
	case "reset":
		return srv.handleReset(id)
	default:
		return errorResponse(id, fmt.Sprintf("unknown op: %s", op))
	}
}

func (srv *Server) serverManual(id string) map[string]any {
	return map[string]any{
		"id": id,
		"ok": true,
		"value": map[string]any{
			"name":    "sigild",
			"version": "1.0.0",
			"ops": map[string]any{
				"eval":            "Evaluate an expression in the root scope. Params: expr (string)",
				"expand":          "Macroexpand an expression without evaluating the result. Params: expr (string)",
				"define":          "Define a named value in the root scope. Params: name (string), expr (string)",
				"undefine":        "Remove a named value. Params: name (string)",
				"names":           "List defined names.",
				"history":         "Return recent evals. Params: n (int, optional)",
				"library-create":  "Create an empty library. Params: name (string)",
				"library-delete":  "Delete a library that owns no definitions. Params: name (string)",
				"library-open":    "Route new definitions to a library. Params: name (string)",
				"library-close":   "Return definitions to the session.",
				"library-list":    "List libraries in load order.",
				"library-compact": "Rewrite a library keeping only live definitions. Params: name (string)",
				"reset":           "Clear session: truncate log, rebuild root scope, reload libraries.",
			},
		},
	}
}

// evalSource reads and evaluates source in the root scope. Multiple
// expressions evaluate in order and the last result wins.
func (srv *Server) evalSource(src string) (any, error) {
	exprs, err := ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if len(exprs) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	var result any
	for _, e := range exprs {
		result, err = Eval(e, srv.root)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (srv *Server) handleEval(id string, msg map[string]any) map[string]any {
	expr, ok := msg["expr"].(string)
	if !ok {
		return errorResponse(id, "eval: missing 'expr' string")
	}

	entry := HistoryEntry{
		Expr:      expr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	val, err := srv.evalSource(expr)
	if err != nil {
		entry.Error = err.Error()
		srv.appendHistory(entry)
		return errorResponse(id, err.Error())
	}

	goVal, err := ToWire(val)
	if err != nil {
		// Results that cannot serialize still land in history as text.
		entry.Result = ExprString(val)
		srv.appendHistory(entry)
		return errorResponse(id, fmt.Sprintf("serialize result: %s", err))
	}
	entry.Result = goVal
	srv.appendHistory(entry)
	return map[string]any{"id": id, "ok": true, "value": goVal}
}

func (srv *Server) handleExpand(id string, msg map[string]any) map[string]any {
	expr, ok := msg["expr"].(string)
	if !ok {
		return errorResponse(id, "expand: missing 'expr' string")
	}
	parsed, err := Read(expr)
	if err != nil {
		return errorResponse(id, fmt.Sprintf("parse error: %s", err))
	}
	cur := parsed
	for {
		c, ok := cur.(*Call)
		if !ok {
			break
		}
		out, changed, err := expandOnce(srv.root, c)
		if err != nil {
			return errorResponse(id, err.Error())
		}
		if !changed {
			break
		}
		cur = out
	}
	return map[string]any{"id": id, "ok": true, "value": ExprString(cur)}
}

func (srv *Server) handleDefine(id string, msg map[string]any) map[string]any {
	name, ok := msg["name"].(string)
	if !ok {
		return errorResponse(id, "define: missing 'name' string")
	}
	expr, ok := msg["expr"].(string)
	if !ok {
		return errorResponse(id, "define: missing 'expr' string")
	}

	if strings.Contains(name, ":") {
		return errorResponse(id, fmt.Sprintf("define: name cannot contain ':': %s", name))
	}
	if strings.Contains(name, "/") {
		return errorResponse(id, fmt.Sprintf("define: name cannot contain '/': %s", name))
	}
	if srv.protected[name] {
		return errorResponse(id, fmt.Sprintf("define: cannot redefine builtin: %s", name))
	}
	// Guard rail: check ownership
	if owner, exists := srv.defOwner[name]; exists && owner != srv.activeLib {
		if owner == "" {
			return errorResponse(id, fmt.Sprintf("define: %s is defined in session; close the library to modify it", name))
		}
		return errorResponse(id, fmt.Sprintf("define: %s is defined in library %q; open that library to modify it", name, owner))
	}

	if err := srv.defineValue(name, expr, srv.activeLib); err != nil {
		return errorResponse(id, err.Error())
	}
	if err := srv.appendLog(fmt.Sprintf("(define %s %s)", name, expr)); err != nil {
		return errorResponse(id, fmt.Sprintf("write log: %s", err))
	}
	return map[string]any{"id": id, "ok": true, "value": name}
}

// defineValue evaluates expr in the root scope and binds name, keeping
// the source text for listing, compaction and replay.
func (srv *Server) defineValue(name, expr, owner string) error {
	parsed, err := Read(expr)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	val, err := Eval(parsed, srv.root)
	if err != nil {
		return err
	}
	srv.root.Define(name, val)
	srv.defSources[name] = expr
	srv.defOwner[name] = owner
	return nil
}

func (srv *Server) handleUndefine(id string, msg map[string]any) map[string]any {
	name, ok := msg["name"].(string)
	if !ok {
		return errorResponse(id, "undefine: missing 'name' string")
	}
	if _, exists := srv.defSources[name]; !exists {
		return errorResponse(id, fmt.Sprintf("undefine: %s is not defined", name))
	}
	if owner := srv.defOwner[name]; owner != srv.activeLib {
		if owner == "" {
			return errorResponse(id, fmt.Sprintf("undefine: %s is defined in session; close the library to modify it", name))
		}
		return errorResponse(id, fmt.Sprintf("undefine: %s is defined in library %q; open that library to modify it", name, owner))
	}

	srv.root.Undefine(name)
	delete(srv.defSources, name)
	delete(srv.defOwner, name)

	if err := srv.appendLog(fmt.Sprintf("(undefine %s)", name)); err != nil {
		return errorResponse(id, fmt.Sprintf("write log: %s", err))
	}
	return map[string]any{"id": id, "ok": true, "value": name}
}

func (srv *Server) definedNames() []string {
	names := make([]string, 0, len(srv.defSources))
	for name := range srv.defSources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (srv *Server) handleNames(id string) map[string]any {
	names := srv.definedNames()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func (srv *Server) handleHistory(id string, msg map[string]any) map[string]any {
	n := len(srv.history)
	if raw, ok := msg["n"]; ok {
		f, ok := raw.(float64)
		if !ok {
			return errorResponse(id, "history: 'n' must be a number")
		}
		if limit := int(f); limit < n {
			n = limit
		}
	}
	if n < 0 {
		n = 0
	}
	start := len(srv.history) - n
	entries := make([]any, n)
	for i := 0; i < n; i++ {
		entries[i] = historyMap(srv.history[start+i], false)
	}
	return map[string]any{"id": id, "ok": true, "value": entries}
}

// historyMap renders an entry as a map, converting the result back to
// host values when the map stays in-process.
func historyMap(h HistoryEntry, host bool) map[string]any {
	m := map[string]any{
		"expr":      h.Expr,
		"result":    h.Result,
		"timestamp": h.Timestamp,
	}
	if host {
		m["result"] = FromWire(h.Result)
	}
	if h.Error != "" {
		m["error"] = h.Error
	} else {
		m["error"] = nil
	}
	return m
}

func (srv *Server) handleReset(id string) map[string]any {
	if err := srv.reset(); err != nil {
		return errorResponse(id, err.Error())
	}
	srv.history = nil
	return map[string]any{"id": id, "ok": true, "value": "reset"}
}

func (srv *Server) reset() error {
	if srv.logFile != nil {
		srv.logFile.Close()
		srv.logFile = nil
	}

	// Truncate session log
	if err := os.Remove(srv.sessionLogPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reset: remove log: %w", err)
	}

	// Rebuild the root scope and definition records
	srv.root = srv.newRoot()
	srv.installServerBuiltins()
	srv.protected = protectedNames(srv.root)
	srv.defSources = make(map[string]string)
	srv.defOwner = make(map[string]string)
	srv.activeLib = ""

	if err := srv.loadLibraries(); err != nil {
		return fmt.Errorf("reset: reload libraries: %w", err)
	}

	f, err := os.OpenFile(srv.sessionLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("reset: reopen log: %w", err)
	}
	srv.logFile = f
	return nil
}

func errorResponse(id, errMsg string) map[string]any {
	return map[string]any{"id": id, "ok": false, "error": errMsg}
}

// --- Libraries ---

func (srv *Server) handleLibraryOp(id string, msg map[string]any, opName string, op func(string) error) map[string]any {
	name, ok := msg["name"].(string)
	if !ok {
		return errorResponse(id, opName+": missing 'name' string")
	}
	if err := op(name); err != nil {
		return errorResponse(id, err.Error())
	}
	return map[string]any{"id": id, "ok": true, "value": name}
}

func (srv *Server) handleLibraryClose(id string) map[string]any {
	if err := srv.libraryClose(); err != nil {
		return errorResponse(id, err.Error())
	}
	return map[string]any{"id": id, "ok": true, "value": "session"}
}

func (srv *Server) handleLibraryList(id string) map[string]any {
	libs := make([]any, len(srv.libraries))
	for i, name := range srv.libraries {
		libs[i] = name
	}
	return map[string]any{
		"id": id,
		"ok": true,
		"value": map[string]any{
			"libraries": libs,
			"open":      srv.activeLib,
		},
	}
}

func (srv *Server) hasLibrary(name string) bool {
	for _, lib := range srv.libraries {
		if lib == name {
			return true
		}
	}
	return false
}

func (srv *Server) libraryCreate(name string) error {
	if strings.Contains(name, "/") || strings.Contains(name, ":") {
		return fmt.Errorf("library-create: invalid library name: %s", name)
	}
	if name == "" {
		return fmt.Errorf("library-create: name cannot be empty")
	}
	if srv.hasLibrary(name) {
		return fmt.Errorf("library-create: library %q already exists", name)
	}
	if err := os.WriteFile(srv.libraryPath(name), []byte{}, 0644); err != nil {
		return fmt.Errorf("library-create: %w", err)
	}
	srv.libraries = append(srv.libraries, name)
	if err := writeManifest(srv.manifestPath(), srv.libraries); err != nil {
		return fmt.Errorf("library-create: write manifest: %w", err)
	}
	return nil
}

func (srv *Server) libraryDelete(name string) error {
	if !srv.hasLibrary(name) {
		return fmt.Errorf("library-delete: library %q not found", name)
	}
	if srv.activeLib == name {
		return fmt.Errorf("library-delete: library %q is currently open; close it first", name)
	}
	for def, owner := range srv.defOwner {
		if owner == name {
			return fmt.Errorf("library-delete: library %q still owns %q; undefine it first", name, def)
		}
	}
	var filtered []string
	for _, lib := range srv.libraries {
		if lib != name {
			filtered = append(filtered, lib)
		}
	}
	srv.libraries = filtered
	if err := writeManifest(srv.manifestPath(), srv.libraries); err != nil {
		return fmt.Errorf("library-delete: write manifest: %w", err)
	}
	if err := os.Remove(srv.libraryPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("library-delete: remove file: %w", err)
	}
	return nil
}

func (srv *Server) libraryOpen(name string) error {
	if !srv.hasLibrary(name) {
		return fmt.Errorf("library-open: library %q not found in manifest", name)
	}
	if srv.activeLib != "" {
		return fmt.Errorf("library-open: library %q is already open; close it first", srv.activeLib)
	}
	if srv.logFile != nil {
		srv.logFile.Close()
		srv.logFile = nil
	}
	f, err := os.OpenFile(srv.libraryPath(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		// Try to reopen the session log on error
		sf, _ := os.OpenFile(srv.sessionLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		srv.logFile = sf
		return fmt.Errorf("library-open: %w", err)
	}
	srv.logFile = f
	srv.activeLib = name
	return nil
}

func (srv *Server) libraryClose() error {
	if srv.activeLib == "" {
		return fmt.Errorf("library-close: no library is open")
	}
	if srv.logFile != nil {
		srv.logFile.Close()
		srv.logFile = nil
	}
	srv.activeLib = ""
	f, err := os.OpenFile(srv.sessionLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("library-close: reopen session log: %w", err)
	}
	srv.logFile = f
	return nil
}

// libraryCompact rewrites a library file to hold one define per live
// name, in first-definition order.
func (srv *Server) libraryCompact(name string) error {
	if !srv.hasLibrary(name) {
		return fmt.Errorf("library-compact: library %q not found", name)
	}
	if srv.activeLib == name {
		return fmt.Errorf("library-compact: library %q is currently open; close it first", name)
	}

	path := srv.libraryPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("library-compact: %w", err)
	}

	// Preserve first-occurrence define order
	seen := make(map[string]bool)
	var orderedNames []string
	for _, entry := range splitLogEntries(string(data)) {
		parsed, err := Read(entry)
		if err != nil {
			continue
		}
		c, ok := parsed.(*Call)
		if !ok || c.NumItems() < 3 {
			continue
		}
		if head, ok := c.At(0).(Symbol); !ok || head != "define" {
			continue
		}
		defName, ok := c.At(1).(Symbol)
		if !ok {
			continue
		}
		if !seen[string(defName)] {
			seen[string(defName)] = true
			orderedNames = append(orderedNames, string(defName))
		}
	}

	var sb strings.Builder
	for _, defName := range orderedNames {
		if owner, ok := srv.defOwner[defName]; !ok || owner != name {
			continue // undefined since, or moved
		}
		src, ok := srv.defSources[defName]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "(define %s %s)\n\n", defName, src)
	}

	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// --- Replay ---

func (srv *Server) loadLibraries() error {
	names, err := readManifest(srv.manifestPath())
	if err != nil {
		return err
	}
	srv.libraries = names

	for _, name := range names {
		if err := srv.replayFile(srv.libraryPath(name), name); err != nil {
			return fmt.Errorf("library %q: %w", name, err)
		}
	}
	return nil
}

func (srv *Server) replayFile(path, libName string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range splitLogEntries(string(data)) {
		if err := srv.replayEntry(entry, libName); err != nil {
			return fmt.Errorf("replaying %q: %w", entry, err)
		}
	}
	return nil
}

func (srv *Server) replayEntry(entry, libName string) error {
	parsed, err := Read(entry)
	if err != nil {
		return err
	}
	c, ok := parsed.(*Call)
	if !ok || c.NumItems() < 2 {
		return fmt.Errorf("invalid log entry: %s", entry)
	}
	cmd, ok := c.At(0).(Symbol)
	if !ok {
		return fmt.Errorf("invalid log entry command: %s", entry)
	}

	switch cmd {
	case "define":
		if c.NumItems() < 3 {
			return fmt.Errorf("define requires name and expression: %s", entry)
		}
		name, ok := c.At(1).(Symbol)
		if !ok {
			return fmt.Errorf("define name must be a symbol: %s", entry)
		}
		exprSource := extractDefineExpr(entry)
		if exprSource == "" {
			return fmt.Errorf("cannot extract expression from define: %s", entry)
		}
		return srv.defineValue(string(name), exprSource, libName)

	case "undefine":
		if c.NumItems() != 2 {
			return fmt.Errorf("undefine requires name: %s", entry)
		}
		name, ok := c.At(1).(Symbol)
		if !ok {
			return fmt.Errorf("undefine name must be a symbol: %s", entry)
		}
		srv.root.Undefine(string(name))
		delete(srv.defSources, string(name))
		delete(srv.defOwner, string(name))
		return nil

	default:
		return fmt.Errorf("unknown log command: %s", cmd)
	}
}

// --- Log ---

func (srv *Server) appendLog(entry string) error {
	_, err := fmt.Fprintf(srv.logFile, "%s\n\n", entry)
	return err
}

func readManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

func writeManifest(path string, names []string) error {
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// extractDefineExpr strips "(define name " and the closing paren from a
// log entry, returning the raw expression text.
func extractDefineExpr(entry string) string {
	s := strings.TrimSpace(entry)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return ""
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])

	if !strings.HasPrefix(inner, "define") {
		return ""
	}
	inner = strings.TrimSpace(inner[6:])

	i := 0
	for i < len(inner) && inner[i] != ' ' && inner[i] != '\t' && inner[i] != '\n' && inner[i] != '(' && inner[i] != ')' {
		i++
	}
	if i == 0 {
		return ""
	}
	return strings.TrimSpace(inner[i:])
}

func splitLogEntries(data string) []string {
	raw := strings.Split(data, "\n\n")
	var entries []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			entries = append(entries, s)
		}
	}
	return entries
}

// --- History ---

// appendHistory adds an entry and enforces the maxHistory cap.
func (srv *Server) appendHistory(h HistoryEntry) {
	srv.history = append(srv.history, h)
	if len(srv.history) > srv.maxHistory {
		// Drop oldest entries
		excess := len(srv.history) - srv.maxHistory
		srv.history = srv.history[excess:]
	}
}

// --- Server builtins ---

// builtinHistory: (history) or (history n) returns recent evals as maps.
func (srv *Server) builtinHistory(args []any) (any, error) {
	n := len(srv.history)
	if len(args) == 1 {
		limit, ok := args[0].(int64)
		if !ok {
			return nil, fmt.Errorf("history: expected int arg, got %s", typeName(args[0]))
		}
		if int(limit) < n {
			n = int(limit)
		}
	} else if len(args) > 1 {
		return nil, fmt.Errorf("history: expected 0 or 1 args, got %d", len(args))
	}
	if n < 0 {
		n = 0
	}
	start := len(srv.history) - n
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = historyMap(srv.history[start+i], true)
	}
	return out, nil
}

// builtinNames: (names) lists server definitions.
func (srv *Server) builtinNames(args []any) (any, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("names: expected 0 args, got %d", len(args))
	}
	names := srv.definedNames()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out, nil
}

// builtinSource: (source 'name) returns the source text of a definition.
func (srv *Server) builtinSource(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("source: expected 1 arg, got %d", len(args))
	}
	var name string
	switch v := args[0].(type) {
	case Symbol:
		name = string(v)
	case string:
		name = v
	default:
		return nil, fmt.Errorf("source: expected symbol or string, got %s", typeName(args[0]))
	}
	src, ok := srv.defSources[name]
	if !ok {
		return nil, fmt.Errorf("source: %s is not defined", name)
	}
	return src, nil
}

// --- Connection handling ---

func (srv *Server) handleClientConnection(conn net.Conn) {
	defer conn.Close()

	for {
		msg, err := ReadMsg(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("read client message: %v", err)
			}
			return
		}

		resp := srv.sendToActor(msg)
		if err := WriteMsg(conn, resp); err != nil {
			log.Printf("write client response: %v", err)
			return
		}
	}
}
