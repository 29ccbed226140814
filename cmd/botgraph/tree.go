package main

import (
	"time"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
	"github.com/randalmurphal/botgraph/pkg/botgraph/commands"
	"github.com/randalmurphal/botgraph/pkg/botgraph/config"
	"github.com/randalmurphal/botgraph/pkg/botgraph/filters"
	"github.com/randalmurphal/botgraph/pkg/botgraph/llm"
)

// registrar is satisfied by *botgraph.Engine.
type registrar interface {
	Register(name, parent string, n botgraph.Node) (string, error)
}

type wiring struct {
	name   string
	parent string
	node   botgraph.Node
}

// buildTree registers the default node forest:
//
//	self_filter
//	+- logger
//	+- forward_filter
//	   +- user_filter
//	      +- prefix
//	         +- echo, help, structure, roll, choose, joined, chat
//	         +- admin
//	            +- join, leave, node_config
//
// A nil chat client leaves out the chat command.
func buildTree(r registrar, s *config.Settings, selfID string, chat llm.Client) error {
	userCfg := s.Node("user_filter")
	roll := commands.NewRoll(nil)
	roll.MaxSides = s.Node("roll").Int("max_sides", 0)

	nodes := []wiring{
		{"self_filter", "", filters.NewSelfFilter(selfID)},
		{"logger", "self_filter", &commands.Logger{}},
		{"forward_filter", "self_filter", filters.NewForwardFilter(s.Node("forward_filter").Duration("threshold", 0))},
		{"user_filter", "forward_filter", filters.NewUserFilter(
			userCfg.StringSlice("users", s.Bot.Ignore),
			userCfg.Bool("allow", false),
		)},
		{"prefix", "user_filter", filters.NewPrefix(s.Bot.Prefix)},
		{"echo", "prefix", commands.Echo{}},
		{"help", "prefix", commands.Help{}},
		{"structure", "prefix", commands.Structure{}},
		{"roll", "prefix", roll},
		{"choose", "prefix", commands.NewChoose(nil)},
		{"joined", "prefix", commands.Joined{}},
	}
	if chat != nil {
		nodes = append(nodes, wiring{"chat", "prefix", commands.NewChat(chat, s.Node("chat").String("system_prompt", ""))})
	}
	nodes = append(nodes,
		wiring{"admin", "prefix", filters.NewAdmin(s.Bot.Admins)},
		wiring{"join", "admin", commands.Join{}},
		wiring{"leave", "admin", commands.Leave{}},
		wiring{"node_config", "admin", commands.NodeConfig{}},
	)

	for _, w := range nodes {
		if _, err := r.Register(w.name, w.parent, w.node); err != nil {
			return err
		}
	}
	return nil
}

// newChatClient returns a Claude CLI client when the chat node is enabled.
func newChatClient(cfg config.Config) llm.Client {
	if !cfg.Bool("enabled", false) {
		return nil
	}
	opts := []llm.ClaudeOption{llm.WithTimeout(cfg.Duration("timeout", 2*time.Minute))}
	if path := cfg.String("claude_path", ""); path != "" {
		opts = append(opts, llm.WithClaudePath(path))
	}
	if model := cfg.String("model", ""); model != "" {
		opts = append(opts, llm.WithModel(model))
	}
	return llm.NewClaudeCLI(opts...)
}
