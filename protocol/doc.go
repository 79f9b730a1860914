// Package protocol implements the Max websocket protocol: request frames,
// response classification and a client that satisfies core.Client.
package protocol
