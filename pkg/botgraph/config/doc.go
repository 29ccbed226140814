/*
Package config loads the bot's settings file and gives nodes typed access to
their own configuration blobs.

# Settings

Settings is the daemon's typed configuration. Load reads YAML or JSON
(chosen by file extension), applies environment overrides and validates the
result:

	s, err := config.Load("botgraph.yaml")
	if err != nil {
	    return err
	}

A minimal file:

	connection:
	  server: https://matrix.example.org
	  username: rustix
	  password: hunter2
	bot:
	  display_name: botgraph
	  prefix: "!"
	  rooms: ["#bots:example.org"]
	  admins: ["@me:example.org"]
	nodes:
	  roll:
	    max_sides: 1000

# Node blobs

Each entry under nodes is exposed as a Config, a map wrapper whose accessors
return a default on a missing key or a type mismatch:

	cfg := s.Node("roll")
	sides := cfg.Int("max_sides", 100)
	aliases := cfg.StringSlice("aliases", nil)
*/
package config
