// Package promptveov1 defines the request and response messages of the
// promptveo.v1 Connect services. Messages are plain structs carried by the
// JSON codecs in pkg/rpcjson.
package promptveov1
