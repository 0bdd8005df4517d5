// Package gateway connects the relay to the instant-messaging client.
//
// The messaging client exposes a line based API over a byte stream:
//
//	relay  -> client   NAME imrelay
//	client -> relay    OK
//	relay  -> client   PROTOCOL 8
//	client -> relay    PROTOCOL 8
//	relay  -> client   #1 GET USERSTATUS
//	client -> relay    #1 USERSTATUS ONLINE
//	client -> relay    CHATMESSAGE 42 STATUS RECEIVED
//
// Lines prefixed with "#<id>" answer a command submitted under that id.
// Every other line is an asynchronous notification.
//
// One wire line always carries one whole payload. A payload spanning
// several lines, such as a chat message body, is escaped: a newline is sent
// as \n, a carriage return as \r and a backslash as \\. Commands are escaped
// the same way, so both sides decode what they receive:
//
//	client -> relay    CHATMESSAGE 42 BODY hello\nworld
//
// becomes the notification "CHATMESSAGE 42 BODY hello" + "\n" + "world".
//
// APIClient is the concrete Gateway. The stream comes from a Dialer: a
// spawned helper process (stdin/stdout), a TCP address or a Unix socket.
package gateway
