package bolt

import (
	"github.com/go-graphdb/neobolt/bolt/message"
	"github.com/go-graphdb/neobolt/neoerr"
	"github.com/go-graphdb/neobolt/uri"
)

// Hello sends HELLO, transitioning CONNECTED -> READY on SUCCESS (spec
// §4.2). FAILURE closes the socket, marking the connection DEFUNCT (spec
// §4.2: "FAILURE closes the socket (DEFUNCT)").
func (c *Conn) Hello(auth uri.AuthToken, routingContext map[string]interface{}) error {
	if c.state != Connected {
		return neoerr.Classify(neoerr.KindProtocol, "HELLO sent from state %s, expected CONNECTED", c.state)
	}

	var rc map[string]interface{}
	if c.dialect.supportsRouting() {
		rc = routingContext
	}

	hello := message.NewHello(c.userAgent, auth.ToMap(), rc, c.correlationID)
	success, err := c.exchange(hello)
	if err != nil {
		c.Close()
		return err
	}

	if agent, ok := success.Metadata["server"].(string); ok {
		c.serverAgent = agent
	}
	c.state = Ready
	c.markReady()
	c.log.Info("bolt HELLO succeeded", "server", c.serverAgent, "connection_id", c.correlationID)
	return nil
}
