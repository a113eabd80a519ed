package endpoint

import "github.com/flowmq/endpoint/transport"

// StartSession runs the receive loop: pull one packet from the
// assembler, dispatch it, repeat, until the transport ends or a
// callback's continue return value says to stop. It blocks the calling
// goroutine — run it in its own goroutine per connection. Per spec §7,
// Close fires exactly once on a clean stream end (EOF, or a callback
// asking to stop) and Error fires exactly once on anything else; neither
// fires more than once, and the loop never calls both.
func (ep *Endpoint) StartSession() {
	ep.log.Debug("session started", "client", ep.clientID)
	ep.connected.Store(true)
	defer ep.write.close()

	for {
		pk, err := ep.asm.Next()
		if err != nil {
			if transport.Classify(err) == transport.KindEOF {
				ep.raiseClose()
				return
			}
			ep.raiseError(err)
			return
		}

		cont, err := ep.dispatch(pk)
		if err != nil {
			ep.raiseError(err)
			return
		}
		if !cont {
			ep.raiseClose()
			return
		}
	}
}
