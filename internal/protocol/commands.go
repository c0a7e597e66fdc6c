package protocol

import "regexp"

// Command identifies a chat command recognized by the server.
type Command int

const (
	CmdNick Command = iota
	CmdSpawn
	CmdGoto
	CmdPQ
	CmdHelp
	CmdPlayers
)

// commandPatterns is ordered; the first match wins.
var commandPatterns = []struct {
	re  *regexp.Regexp
	cmd Command
}{
	{regexp.MustCompile(`^/nick(?:\s+([^,\s]+))?$`), CmdNick},
	{regexp.MustCompile(`^/spawn$`), CmdSpawn},
	{regexp.MustCompile(`^/goto(?:\s+(\S+))?$`), CmdGoto},
	{regexp.MustCompile(`^/pq\s+(-?[0-9]+)\s*,?\s*(-?[0-9]+)$`), CmdPQ},
	{regexp.MustCompile(`^/help$`), CmdHelp},
	{regexp.MustCompile(`^/players$`), CmdPlayers},
}

// MatchCommand tries the chat text against the command table. Args are
// the capture groups of the winning pattern; optional groups that did
// not participate are empty strings.
func MatchCommand(text string) (Command, []string, bool) {
	for _, p := range commandPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return p.cmd, m[1:], true
		}
	}
	return 0, nil, false
}
