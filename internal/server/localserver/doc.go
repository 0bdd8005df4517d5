// Package localserver provides the Unix socket admin endpoint.
//
// Each request is one command line; each response is one JSON line:
//
//	status  -> {"ok":true,"data":{...relay status...}}
//	drop    -> {"ok":true,"data":{"session_id":"rs-..."}}
//	other   -> {"ok":false,"code":"IR-ARG-1001","error":"unknown command: ..."}
//
// Access is controlled by the socket file permissions (0600).
package localserver
