package middleware

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/agentruntime/core/runtime/tools"
	"github.com/agentruntime/core/runtime/vfs"
)

// filesystemMiddleware exposes a *vfs.Server's operations as tools
// (write_file, read_file, delete_file, list_files) so the model can read
// and write the agent's virtual filesystem directly.
type filesystemMiddleware struct {
	Base
	server *vfs.Server
}

// NewFilesystem returns the filesystem default middleware, backed by
// server. Pass vfs.NewServer() for a fresh, unpersisted filesystem; callers
// register PersistenceConfigs on server before or after construction.
func NewFilesystem(server *vfs.Server) Middleware {
	return &filesystemMiddleware{server: server}
}

func (*filesystemMiddleware) Name() string { return "filesystem" }

func (m *filesystemMiddleware) SystemPrompt() []string {
	return []string{"You have access to a virtual filesystem via write_file, read_file, delete_file, and list_files tools."}
}

func (m *filesystemMiddleware) Tools() []tools.Tool {
	return []tools.Tool{
		writeFileTool{server: m.server},
		readFileTool{server: m.server},
		deleteFileTool{server: m.server},
		listFilesTool{server: m.server},
	}
}

// DecodeStorageOptions decodes a PersistenceConfig's freeform Options bag
// into a strongly typed backend configuration struct, the same
// mapstructure-based decoding pattern the teacher uses for its own
// configuration surfaces.
func DecodeStorageOptions(options map[string]any, out any) error {
	if options == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: out, TagName: "mapstructure"})
	if err != nil {
		return fmt.Errorf("middleware: new decoder: %w", err)
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("middleware: decode storage options: %w", err)
	}
	return nil
}

type writeFileTool struct{ server *vfs.Server }

func (writeFileTool) Name() tools.Ident        { return "write_file" }
func (writeFileTool) Description() string      { return "Create or overwrite a file in the virtual filesystem." }
func (writeFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string"},
			"content": map[string]any{"type": "string"},
		},
		"required": []any{"path", "content"},
	}
}
func (t writeFileTool) Call(ctx tools.Context, arguments map[string]any) (tools.Result, error) {
	p, _ := arguments["path"].(string)
	content, _ := arguments["content"].(string)
	if err := t.server.WriteFile(ctx, p, []byte(content)); err != nil {
		return tools.Result{}, err
	}
	return tools.Result{Content: map[string]any{"written": p}}, nil
}

type readFileTool struct{ server *vfs.Server }

func (readFileTool) Name() tools.Ident   { return "read_file" }
func (readFileTool) Description() string { return "Read a file from the virtual filesystem." }
func (readFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
		"required":   []any{"path"},
	}
}
func (t readFileTool) Call(ctx tools.Context, arguments map[string]any) (tools.Result, error) {
	p, _ := arguments["path"].(string)
	content, err := t.server.ReadFile(ctx, p)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{Content: string(content)}, nil
}

type deleteFileTool struct{ server *vfs.Server }

func (deleteFileTool) Name() tools.Ident   { return "delete_file" }
func (deleteFileTool) Description() string { return "Delete a file from the virtual filesystem." }
func (deleteFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
		"required":   []any{"path"},
	}
}
func (t deleteFileTool) Call(ctx tools.Context, arguments map[string]any) (tools.Result, error) {
	p, _ := arguments["path"].(string)
	if err := t.server.DeleteFile(ctx, p); err != nil {
		return tools.Result{}, err
	}
	return tools.Result{Content: map[string]any{"deleted": p}}, nil
}

type listFilesTool struct{ server *vfs.Server }

func (listFilesTool) Name() tools.Ident   { return "list_files" }
func (listFilesTool) Description() string { return "List virtual filesystem paths, optionally filtered by prefix." }
func (listFilesTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"prefix": map[string]any{"type": "string"}},
	}
}
func (t listFilesTool) Call(ctx tools.Context, arguments map[string]any) (tools.Result, error) {
	prefix, _ := arguments["prefix"].(string)
	return tools.Result{Content: map[string]any{"paths": t.server.ListFiles(prefix)}}, nil
}

var (
	_ Middleware  = (*filesystemMiddleware)(nil)
	_ tools.Tool  = writeFileTool{}
	_ tools.Tool  = readFileTool{}
	_ tools.Tool  = deleteFileTool{}
	_ tools.Tool  = listFilesTool{}
)
