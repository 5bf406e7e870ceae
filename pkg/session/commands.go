package session

import (
	"strings"

	"github.com/BERBARIANKING/fosscomm-2024/pkg/vfs"
)

// Shell responses.
const (
	msgNotADirectory  = "Error: Current path is not a directory\n"
	msgCdUsage        = "Usage: cd <directory>\n"
	msgDirNotFound    = "Error: Directory not found\n"
	msgCatUsage       = "Usage: cat <filename>\n"
	msgFileNotFound   = "Error: File not found or is a directory\n"
	msgUnknownCommand = "Error: Command not recognized\n"
)

// commandFunc runs a shell command against the session cursor and returns
// the bytes to send and whether the command failed.
type commandFunc func(c *vfs.Cursor, args []string) (out string, failed bool)

var commands = map[string]commandFunc{
	"ls":  listCommand,
	"cd":  changeDirCommand,
	"cat": catCommand,
	"pwd": pwdCommand,
}

// dispatch runs one command line. Names are case sensitive.
func dispatch(c *vfs.Cursor, name string, args []string) (string, bool) {
	cmd, ok := commands[name]
	if !ok {
		return msgUnknownCommand, true
	}
	return cmd(c, args)
}

func listCommand(c *vfs.Cursor, _ []string) (string, bool) {
	names, err := c.List()
	if err != nil {
		return msgNotADirectory, true
	}
	return strings.Join(names, ", ") + "\n", false
}

func changeDirCommand(c *vfs.Cursor, args []string) (string, bool) {
	if len(args) == 0 {
		return msgCdUsage, true
	}
	if err := c.ChangeDirectory(args[0]); err != nil {
		return msgDirNotFound, true
	}
	return "", false
}

func catCommand(c *vfs.Cursor, args []string) (string, bool) {
	if len(args) == 0 {
		return msgCatUsage, true
	}
	content, err := c.ReadFile(args[0])
	if err != nil {
		return msgFileNotFound, true
	}
	return content + "\n", false
}

func pwdCommand(c *vfs.Cursor, _ []string) (string, bool) {
	return c.String() + "\n", false
}
