package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukex/opsflow/pkg/diagram"
	"github.com/dukex/opsflow/pkg/editor"
	"github.com/dukex/opsflow/pkg/gateway"
	"github.com/dukex/opsflow/pkg/graphstore"
	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/sidebar"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errAmbiguousID    = errors.New("ambiguous id prefix")
	errUnknownID      = errors.New("no match for id")
)

const helpText = `commands:
  show | json | status
  node add <category> <x> <y> <label...>
  node copy <id>
  node move <id> <x> <y>
  node rename <id> <label...>
  node color <id> <#hex>
  node category <id> <category>
  node set <id> <key> <value...>
  node unset <id> <key>
  node rm <id>
  connect <source> <target> <name...>
  edge rename <id> [name...]
  edge path <id> <source> <target>
  edge event <id> <event-type>
  edge priority <id> <n>
  edge set <id> <key> <value...>
  edge unset <id> <key>
  edge rm <id>
  save | discard | quit
ids may be abbreviated to any unique prefix`

type replConfig struct {
	requestTimeout time.Duration
	settleTimeout  time.Duration
}

// syncWriter serializes output from the prompt loop and from store notifications.
type syncWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *syncWriter) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Fprintf(w.out, format, args...)
}

type repl struct {
	out        *syncWriter
	scanner    *bufio.Scanner
	store      *graphstore.Store
	session    *editor.Session
	controller *diagram.Controller
	dialogs    *sidebar.Dialogs
}

func newREPL(gw gateway.Gateway, in io.Reader, out io.Writer, cfg replConfig) *repl {
	w := &syncWriter{out: out}

	notifier := graphstore.NotifierFunc(func(_ context.Context, n graphstore.Notification) {
		w.printf("! %s: %s\n", n.Title, n.Message)
	})

	store := graphstore.New(gw,
		graphstore.WithNotifier(notifier),
		graphstore.WithRequestTimeout(cfg.requestTimeout),
	)

	return &repl{
		out:     w,
		scanner: bufio.NewScanner(in),
		store:   store,
		session: editor.New(store, gw,
			editor.WithNotifier(notifier),
			editor.WithSettleTimeout(cfg.settleTimeout),
		),
		controller: diagram.NewController(store),
		dialogs:    sidebar.NewDialogs(store),
	}
}

func (r *repl) close() {
	r.controller.Close()
}

// run opens workflowID and executes commands until save, quit or end of input.
func (r *repl) run(ctx context.Context, workflowID string) error {
	if err := r.session.Open(ctx, workflowID); err != nil {
		return err
	}

	r.show()

	for {
		r.out.printf("> ")

		if !r.scanner.Scan() {
			r.out.printf("\n")

			return r.scanner.Err()
		}

		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		done, err := r.exec(ctx, strings.Fields(line))
		if err != nil {
			r.out.printf("error: %s\n", gateway.Message(err))
		}

		if done {
			return nil
		}
	}
}

func (r *repl) exec(ctx context.Context, args []string) (bool, error) {
	switch args[0] {
	case "help", "?":
		r.out.printf("%s\n", helpText)
	case "show":
		r.show()
	case "json":
		return false, r.json()
	case "status":
		r.status()
	case "node":
		return false, r.node(ctx, args[1:])
	case "connect":
		if len(args) < 4 {
			return false, fmt.Errorf("%w: connect <source> <target> <name...>", errMissingArgument)
		}

		return false, r.connect(ctx, args[1], args[2], strings.Join(args[3:], " "))
	case "edge":
		return false, r.edge(ctx, args[1:])
	case "save":
		if err := r.session.Save(ctx); err != nil {
			return false, err
		}

		r.out.printf("saved\n")

		return true, nil
	case "discard":
		return false, r.discard(ctx)
	case "quit", "exit":
		if r.session.HasUnsavedChanges() {
			r.out.printf("leaving with unsaved changes; they are already stored remotely\n")
		}

		return true, nil
	default:
		return false, fmt.Errorf("%w %q, try help", errUnknownCommand, args[0])
	}

	return false, nil
}

func (r *repl) show() {
	labels := make(map[string]string)

	r.out.printf("nodes:\n")

	for _, n := range r.controller.Nodes() {
		labels[n.ID] = n.Data.Label
		r.out.printf("  %-8s %-12s %-24q (%g, %g) %s\n",
			short(n.ID), n.Data.Category, n.Data.Label, n.Position.X, n.Position.Y, n.Data.Color)
	}

	r.out.printf("edges:\n")

	for _, e := range r.controller.Edges() {
		r.out.printf("  %-8s %q %s -> %s [%s/%s] %s p%d\n",
			short(e.ID), e.Label, labels[e.Source], labels[e.Target],
			e.SourceHandle, e.TargetHandle, e.Data.EventType, e.Data.Priority)
	}
}

func (r *repl) json() error {
	payload, err := json.MarshalIndent(struct {
		Nodes []diagram.RenderNode `json:"nodes"`
		Edges []diagram.RenderEdge `json:"edges"`
	}{r.controller.Nodes(), r.controller.Edges()}, "", "  ")
	if err != nil {
		return err
	}

	r.out.printf("%s\n", payload)

	return nil
}

func (r *repl) status() {
	r.out.printf("state=%s unsaved=%t pending=%v\n",
		r.session.State(), r.session.HasUnsavedChanges(), r.store.PendingOperations())
}

func (r *repl) discard(ctx context.Context) error {
	confirm := editor.ConfirmerFunc(func(_ context.Context, prompt string) bool {
		r.out.printf("%s [y/N] ", prompt)

		if !r.scanner.Scan() {
			return false
		}

		answer := strings.ToLower(strings.TrimSpace(r.scanner.Text()))

		return answer == "y" || answer == "yes"
	})

	err := r.session.Discard(ctx, confirm)
	if errors.Is(err, editor.ErrDiscardNotConfirmed) {
		r.out.printf("discard cancelled\n")

		return nil
	}

	if err != nil {
		return err
	}

	r.out.printf("changes discarded\n")
	r.show()

	return nil
}

func (r *repl) connect(ctx context.Context, source, target, name string) error {
	sourceID, err := r.nodeID(source)
	if err != nil {
		return err
	}

	targetID, err := r.nodeID(target)
	if err != nil {
		return err
	}

	connection, err := r.dialogs.CreateConnection(ctx, sourceID, targetID, name, models.EventTypeManual)
	if err != nil {
		return err
	}

	r.out.printf("created edge %s\n", short(connection.ID))

	return nil
}

func (r *repl) node(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: node <action> ...", errMissingArgument)
	}

	action := args[0]

	if action == "add" {
		if len(args) < 5 {
			return fmt.Errorf("%w: node add <category> <x> <y> <label...>", errMissingArgument)
		}

		position, err := parsePosition(args[2], args[3])
		if err != nil {
			return err
		}

		node, err := r.dialogs.CreateNode(ctx, strings.Join(args[4:], " "), models.NodeCategory(args[1]), position)
		if err != nil {
			return err
		}

		r.out.printf("created node %s\n", short(node.ID))

		return nil
	}

	id, err := r.nodeID(args[1])
	if err != nil {
		return err
	}

	panel := sidebar.NewNodePanel(r.store, id)
	rest := args[2:]

	switch action {
	case "copy":
		node, err := r.dialogs.CopyNode(ctx, id)
		if err != nil {
			return err
		}

		r.out.printf("created node %s\n", short(node.ID))

		return nil
	case "move":
		if len(rest) < 2 {
			return fmt.Errorf("%w: node move <id> <x> <y>", errMissingArgument)
		}

		position, err := parsePosition(rest[0], rest[1])
		if err != nil {
			return err
		}

		return r.controller.OnNodeDragStop(ctx, id, position)
	case "rename":
		return panel.Rename(ctx, strings.Join(rest, " "))
	case "color":
		if len(rest) < 1 {
			return fmt.Errorf("%w: node color <id> <#hex>", errMissingArgument)
		}

		return panel.SetColor(ctx, rest[0])
	case "category":
		if len(rest) < 1 {
			return fmt.Errorf("%w: node category <id> <category>", errMissingArgument)
		}

		return panel.SetCategory(ctx, models.NodeCategory(rest[0]))
	case "set":
		if len(rest) < 2 {
			return fmt.Errorf("%w: node set <id> <key> <value...>", errMissingArgument)
		}

		return panel.SetProperty(ctx, rest[0], strings.Join(rest[1:], " "))
	case "unset":
		if len(rest) < 1 {
			return fmt.Errorf("%w: node unset <id> <key>", errMissingArgument)
		}

		return panel.RemoveProperty(ctx, rest[0])
	case "rm":
		return r.controller.OnNodesDelete(ctx, []string{id})
	default:
		return fmt.Errorf("%w node %q", errUnknownCommand, action)
	}
}

func (r *repl) edge(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: edge <action> <id> ...", errMissingArgument)
	}

	id, err := r.connectionID(args[1])
	if err != nil {
		return err
	}

	panel := sidebar.NewConnectionPanel(r.store, id)
	rest := args[2:]

	switch args[0] {
	case "rename":
		return panel.Rename(ctx, strings.Join(rest, " "))
	case "path":
		if len(rest) < 2 {
			return fmt.Errorf("%w: edge path <id> <source> <target>", errMissingArgument)
		}

		sourceID, err := r.nodeID(rest[0])
		if err != nil {
			return err
		}

		targetID, err := r.nodeID(rest[1])
		if err != nil {
			return err
		}

		return panel.SetPath(ctx, sourceID, targetID)
	case "event":
		if len(rest) < 1 {
			return fmt.Errorf("%w: edge event <id> <event-type>", errMissingArgument)
		}

		return panel.SetEventType(ctx, models.EventType(rest[0]))
	case "priority":
		if len(rest) < 1 {
			return fmt.Errorf("%w: edge priority <id> <n>", errMissingArgument)
		}

		priority, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid priority %q: %w", rest[0], err)
		}

		return panel.SetPriority(ctx, priority)
	case "set":
		if len(rest) < 2 {
			return fmt.Errorf("%w: edge set <id> <key> <value...>", errMissingArgument)
		}

		return panel.SetProperty(ctx, rest[0], strings.Join(rest[1:], " "))
	case "unset":
		if len(rest) < 1 {
			return fmt.Errorf("%w: edge unset <id> <key>", errMissingArgument)
		}

		return panel.RemoveProperty(ctx, rest[0])
	case "rm":
		return r.controller.OnEdgesDelete(ctx, []string{id})
	default:
		return fmt.Errorf("%w edge %q", errUnknownCommand, args[0])
	}
}

func (r *repl) nodeID(prefix string) (string, error) {
	nodes := r.store.Nodes()
	ids := make([]string, 0, len(nodes))

	for _, n := range nodes {
		ids = append(ids, n.ID)
	}

	return resolveID(prefix, ids)
}

func (r *repl) connectionID(prefix string) (string, error) {
	connections := r.store.Connections()
	ids := make([]string, 0, len(connections))

	for _, c := range connections {
		ids = append(ids, c.ID)
	}

	return resolveID(prefix, ids)
}

// resolveID expands a unique prefix to a full id. An exact match always wins.
func resolveID(prefix string, ids []string) (string, error) {
	var match string

	for _, id := range ids {
		if id == prefix {
			return id, nil
		}

		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", fmt.Errorf("%w %q", errAmbiguousID, prefix)
			}

			match = id
		}
	}

	if match == "" {
		return "", fmt.Errorf("%w %q", errUnknownID, prefix)
	}

	return match, nil
}

func parsePosition(x, y string) (models.Position, error) {
	px, err := strconv.ParseFloat(x, 64)
	if err != nil {
		return models.Position{}, fmt.Errorf("invalid x %q: %w", x, err)
	}

	py, err := strconv.ParseFloat(y, 64)
	if err != nil {
		return models.Position{}, fmt.Errorf("invalid y %q: %w", y, err)
	}

	return models.Position{X: px, Y: py}, nil
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}
