// Package config provides configuration parsing for reactor tools.
//
// The configuration is stored in reactor.yaml. Every field has a default,
// so the file is optional and may set only the keys it cares about.
//
// # Configuration File Structure
//
//	log:
//	  level: debug        # debug, info, warn, error
//	  format: json        # text, json
//	runtime:
//	  sweep_interval: 256
//	server:
//	  host: localhost
//	  port: 7070
//	  read_timeout: 10s
//	  write_timeout: 10s
//	metrics:
//	  enabled: true
//	  namespace: reactor
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	logger := cfg.NewLogger(os.Stderr)
//	fmt.Println("Listening on", cfg.ServerAddress())
package config
