// Package registry maps bundle ids to their lifecycle records.
//
// Records live in the durable key-value store under "<id>_info" and are
// flushed after every write, so a crash right after a download still leaves
// a discoverable record. Installed bundles are enumerated by listing the hot
// tree and resolving every directory name through Get.
//
// Example Usage:
//
//	reg := registry.NewManager(store, layout, logger)
//	info := reg.Get(ctx, id)
//	_ = reg.SetStatus(ctx, id, bundle.StatusSuccess)
//	all := reg.List(ctx)
package registry
