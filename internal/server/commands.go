package server

import (
	"math/rand/v2"
	"strconv"

	"github.com/craftd/craftd/internal/chunk"
	"github.com/craftd/craftd/internal/protocol"
)

func (m *Model) onCommand(s *Session, cmd protocol.Command, args []string) error {
	switch cmd {
	case protocol.CmdNick:
		m.cmdNick(s, args[0])
	case protocol.CmdSpawn:
		m.cmdSpawn(s)
	case protocol.CmdGoto:
		m.cmdGoto(s, args[0])
	case protocol.CmdPQ:
		m.cmdPQ(s, args[0], args[1])
	case protocol.CmdHelp:
		m.cmdHelp(s)
	case protocol.CmdPlayers:
		m.cmdPlayers(s)
	}
	return nil
}

func (m *Model) cmdNick(s *Session, nick string) {
	if nick == "" {
		s.sendFrame(protocol.TagTalk, "Your nickname is "+s.Nick)
		return
	}
	m.sendTalk(s.Nick + " is now known as " + nick)
	s.Nick = nick
	m.sendNick(s)
}

func (m *Model) cmdSpawn(s *Session) {
	m.teleport(s, spawnPoint)
}

// cmdGoto teleports to a named player, or to a random other player
// when no name is given. With nobody else connected it does nothing.
func (m *Model) cmdGoto(s *Session, nick string) {
	var target *Session
	if nick == "" {
		var others []*Session
		for _, c := range m.clients {
			if c != s {
				others = append(others, c)
			}
		}
		if len(others) == 0 {
			return
		}
		target = others[rand.IntN(len(others))]
	} else {
		for _, c := range m.clients {
			if c.Nick == nick {
				target = c
				break
			}
		}
	}
	if target == nil {
		return
	}
	m.teleport(s, target.Pos)
}

func (m *Model) cmdPQ(s *Session, pStr, qStr string) {
	p, err := strconv.Atoi(pStr)
	if err != nil {
		return
	}
	q, err := strconv.Atoi(qStr)
	if err != nil {
		return
	}
	if p < -1000 || p > 1000 || q < -1000 || q > 1000 {
		return
	}
	m.teleport(s, protocol.Position{X: float64(p * chunk.Size), Z: float64(q * chunk.Size)})
}

func (m *Model) cmdHelp(s *Session) {
	s.sendFrame(protocol.TagTalk, `Type "t" to chat with other players.`)
	s.sendFrame(protocol.TagTalk, `Type "/" to start typing a command.`)
	s.sendFrame(protocol.TagTalk, "Commands: /goto [NAME], /help, /nick [NAME], /players, /spawn")
}

func (m *Model) cmdPlayers(s *Session) {
	names := ""
	for i, c := range m.clients {
		if i > 0 {
			names += ", "
		}
		names += c.Nick
	}
	s.sendFrame(protocol.TagTalk, "Players: "+names)
}
