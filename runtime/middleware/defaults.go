package middleware

import "github.com/agentruntime/core/runtime/vfs"

// Defaults returns the default middleware set prepended at agent
// construction unless replace_default_middleware is set (spec.md §4.3):
// todo-list, filesystem, summarisation, patch-dangling-tool-calls, and
// human-in-the-loop. The filesystem default is backed by a fresh
// in-memory-only vfs.Server; callers that want persistence construct their
// own NewFilesystem(server) with PersistenceConfigs registered on server
// and pass it as an explicit entry with replaceDefaults=true instead.
// Human-in-the-loop ships unconfigured (inert) by default; callers opt in
// by passing their own NewHumanInTheLoop(configs...) entry the same way.
func Defaults() []Middleware {
	return []Middleware{
		NewTodoList(),
		NewFilesystem(vfs.NewServer()),
		NewSummarization(0, 0, nil),
		NewPatchDanglingToolCalls(),
		NewHumanInTheLoop(),
	}
}
