package domain

// Live channel event names.
const (
	EventMatchNew         = "match:new"
	EventMatchIcebreakers = "match:icebreakers"
	EventMatchUnmatched   = "match:unmatched"

	EventMessageReceive   = "message:receive"
	EventMessageAck       = "message:ack"
	EventMessageDelivered = "message:delivered"
	EventMessageRead      = "message:read"

	EventError = "error"
	EventPong  = "pong"
)

// Client intents accepted on a live connection.
const (
	IntentRoomJoin    = "room:join"
	IntentRoomLeave   = "room:leave"
	IntentMessageSend = "message:send"
	IntentMessageRead = "message:read"
	IntentPing        = "ping"
)
