package feature

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Placeholder used when a provider references a command that does not exist.
const (
	MissingCommandTitle = "<<MISSING COMMAND>>"
	MissingCommandID    = "missing"
)

// CommandHandler executes a command.
type CommandHandler func(ctx context.Context, args ...any) (any, error)

type commandEntry struct {
	title   string
	handler CommandHandler
	owner   *CommandRegistration
}

// CommandRegistration is a command entry that can be removed again.
type CommandRegistration struct {
	ID    string
	table *CommandTable
	once  sync.Once
}

// Dispose removes the command. Calling it more than once is a no-op.
func (c *CommandRegistration) Dispose() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		c.table.remove(c)
	})
}

// CommandTable maps command ids to handlers. Providers reference commands by
// id; ids not in the table are replaced by a placeholder.
//
// CommandTable is safe for concurrent use.
type CommandTable struct {
	mu       sync.RWMutex
	commands map[string]commandEntry
}

// NewCommandTable creates an empty command table.
func NewCommandTable() *CommandTable {
	return &CommandTable{commands: make(map[string]commandEntry)}
}

// Register adds or replaces command id.
func (t *CommandTable) Register(id, title string, handler CommandHandler) *CommandRegistration {
	reg := &CommandRegistration{ID: id, table: t}
	t.mu.Lock()
	t.commands[id] = commandEntry{title: title, handler: handler, owner: reg}
	t.mu.Unlock()
	return reg
}

func (t *CommandTable) remove(reg *CommandRegistration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// A later Register of the same id owns the entry now.
	if entry, ok := t.commands[reg.ID]; ok && entry.owner == reg {
		delete(t.commands, reg.ID)
	}
}

// Lookup returns the command registered under id.
func (t *CommandTable) Lookup(id string) (Command, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.commands[id]
	if !ok {
		return Command{}, false
	}
	return Command{ID: id, Title: entry.title}, true
}

// IDs returns the registered command ids, sorted.
func (t *CommandTable) IDs() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.commands))
	for id := range t.commands {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Execute runs command id.
func (t *CommandTable) Execute(ctx context.Context, id string, args ...any) (any, error) {
	t.mu.RLock()
	entry, ok := t.commands[id]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
	if entry.handler == nil {
		return nil, nil
	}
	return entry.handler(ctx, args...)
}

// Normalize returns cmd, or a placeholder carrying MissingCommandTitle when
// cmd references an id that is not registered.
func (t *CommandTable) Normalize(cmd *Command) *Command {
	if cmd == nil {
		return nil
	}
	if _, ok := t.Lookup(cmd.ID); ok {
		return cmd
	}
	return &Command{ID: cmd.ID, Title: MissingCommandTitle, Arguments: cmd.Arguments}
}

// missingCommand is attached to a lens whose resolver produced no command.
func missingCommand() *Command {
	return &Command{ID: MissingCommandID, Title: MissingCommandTitle}
}
