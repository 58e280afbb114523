package adapters

import "github.com/brettbedarf/bootfs/config"

// RegisterBuiltins registers all built-in transports by default
// or only the specific ones if names are provided
func RegisterBuiltins(r *Registry, names ...string) {
	if len(names) == 0 {
		// Include all built-in transports here when adding implementations
		names = append(names, config.TFTPTransport, config.HTTPTransport)
	}

	for _, name := range names {
		switch name {
		case config.TFTPTransport:
			RegisterTFTP(r)
		case config.HTTPTransport:
			RegisterHTTP(r)
		}
	}
}
