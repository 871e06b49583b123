package script

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/benz9527/xtree/lib/infra"
)

type Op string

const (
	OpInsert    Op = "insert"
	OpDelete    Op = "delete"
	OpSearch    Op = "search"
	OpInorder   Op = "inorder"
	OpMin       Op = "min"
	OpMax       Op = "max"
	OpDeleteMin Op = "deletemin"
	OpLen       Op = "len"
	OpHeight    Op = "height"
	OpValidate  Op = "validate"
	OpPrint     Op = "print"
	OpRelease   Op = "release"
)

const commentMark = "#"

// true if the op takes at least one key, false if it takes none.
var opArgs = map[Op]bool{
	OpInsert:    true,
	OpDelete:    true,
	OpSearch:    true,
	OpInorder:   false,
	OpMin:       false,
	OpMax:       false,
	OpDeleteMin: false,
	OpLen:       false,
	OpHeight:    false,
	OpValidate:  false,
	OpPrint:     false,
	OpRelease:   false,
}

// Mutating reports whether the op may change the tree.
func (op Op) Mutating() bool {
	switch op {
	case OpInsert, OpDelete, OpDeleteMin, OpRelease:
		return true
	default:
	}
	return false
}

type Command struct {
	Line int
	Op   Op
	Keys []int64
}

func (cmd Command) String() string {
	if len(cmd.Keys) == 0 {
		return string(cmd.Op)
	}
	builder := &strings.Builder{}
	builder.WriteString(string(cmd.Op))
	for _, key := range cmd.Keys {
		builder.WriteString(" ")
		builder.WriteString(strconv.FormatInt(key, 10))
	}
	return builder.String()
}

// Parse reads one command per line. Blank lines and the text after
// '#' are ignored, the ops are case-insensitive.
func Parse(r io.Reader) ([]Command, error) {
	cmds := make([]Command, 0, 32)
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		cmd, ok, err := parseLine(line, scanner.Text())
		if err != nil {
			return nil, err
		}
		if ok {
			cmds = append(cmds, cmd)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, infra.WrapErrorStack(err, "read script")
	}
	return cmds, nil
}

func parseLine(line int, text string) (Command, bool, error) {
	if idx := strings.Index(text, commentMark); idx >= 0 {
		text = text[:idx]
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}, false, nil
	}

	op := Op(strings.ToLower(fields[0]))
	withKeys, ok := opArgs[op]
	if !ok {
		return Command{}, false, infra.NewErrorStack("line " + strconv.Itoa(line) + ": unknown command " + fields[0])
	}
	args := fields[1:]
	if withKeys && len(args) == 0 {
		return Command{}, false, infra.NewErrorStack("line " + strconv.Itoa(line) + ": " + string(op) + " without keys")
	}
	if !withKeys && len(args) > 0 {
		return Command{}, false, infra.NewErrorStack("line " + strconv.Itoa(line) + ": " + string(op) + " takes no keys")
	}

	keys := make([]int64, 0, len(args))
	for _, arg := range args {
		key, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Command{}, false, infra.WrapErrorStack(err, "line "+strconv.Itoa(line)+": invalid key "+arg)
		}
		keys = append(keys, key)
	}
	return Command{Line: line, Op: op, Keys: keys}, true, nil
}
