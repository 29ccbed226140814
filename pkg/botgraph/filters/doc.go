// Package filters provides parent nodes that decide whether an event reaches
// their subtree.
//
// Every filter embeds botgraph.Branch, so children are registered under it
// like any other parent. A filter that rejects an event simply does not
// propagate it; nothing is logged and no error is returned.
//
// UserFilter and ChannelFilter are reconfigurable at runtime through the
// node config command and persist their lists through the state store as
//
//	<allow>|<comma separated entries>
//
// for example "false|@spam:example.org,@bot:example.org".
package filters
