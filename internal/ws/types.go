package ws

import (
	"context"
	"time"

	"github.com/saker-ai/akbar-server/internal/protocol"
)

const (
	queueSize       = 16
	maxMessageBytes = 32 << 20
	writeTimeout    = 10 * time.Second
)

type incomingHandler func(context.Context, protocol.ClientCommand)
