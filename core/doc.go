// Package core contains the host-facing contracts and the Host that drives a
// messenger client through the bridge. Protocol, storage and transport
// adapters depend on this package; core must not depend on them.
package core
