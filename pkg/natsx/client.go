package natsx

import (
	"github.com/nats-io/nats.go"
)

// ClientName identifies hoot connections on the NATS server.
const ClientName = "hoot"

// Connect opens a NATS connection to url with compression enabled. An empty url
// uses nats.DefaultURL. Extra options are applied after the defaults.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	options := append([]nats.Option{nats.Name(ClientName), nats.Compression(true)}, opts...)
	return nats.Connect(url, options...)
}
