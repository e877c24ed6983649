// Package paths computes where bundles live on disk.
//
// Every bundle id maps onto two parallel trees:
//
//	<hot root>/
//	  └── <id>/          (ephemeral copy, may be purged by the OS)
//	      └── index.html
//	<persistent root>/
//	  └── <id>/          (durable copy, source of truth for installedness)
//	      └── index.html
//	<temp root>/         (scratch downloads and extractions)
//
// The builtin bundle is not part of either tree; it resolves to the read-only
// asset directory shipped inside the app.
//
// # Usage
//
//	layout := paths.New(hot, persist, tmp, builtin)
//	dir := layout.Persist("01hx...")
//	index := layout.Entry(dir)
package paths
