// Package bundle defines the bundle record and its storage codec.
//
// A record moves through the lifecycle:
//
//	downloading -> pending -> success
//	                       \-> error
//
// Two ids are reserved: "builtin" for the assets shipped with the app and
// "unknown" for ids that cannot be resolved. Neither is ever persisted.
package bundle
