package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var idSeparators = regexp.MustCompile(`[,\s]+`)

// ParseChatID extracts a chat ID from a command argument string.
func ParseChatID(args string) (int64, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, fmt.Errorf("usage: <chat_id>")
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat ID %q", fields[0])
	}
	return id, nil
}

// ParseChatKeywordArgs splits "<chat_id> <keyword...>". The keyword keeps
// its inner spacing.
func ParseChatKeywordArgs(args string) (int64, string, error) {
	args = strings.TrimSpace(args)
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return 0, "", fmt.Errorf("usage: <chat_id> <keyword>")
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid chat ID %q", fields[0])
	}
	return id, strings.TrimSpace(strings.TrimPrefix(args, fields[0])), nil
}

// ParseBroadcastArgs splits "/broadcast" arguments into chat IDs and text.
// Leading tokens made only of digits, '-' and ',' form the ID list; the rest
// is the message. Tokens that are not valid integers are skipped.
func ParseBroadcastArgs(args string) ([]int64, string) {
	rest := strings.TrimLeftFunc(args, unicode.IsSpace)
	var idPart strings.Builder
	for rest != "" {
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			end = len(rest)
		}
		token := rest[:end]
		if strings.Trim(token, "-,0123456789") != "" {
			break
		}
		idPart.WriteString(token)
		idPart.WriteByte(' ')
		rest = strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	}

	var ids []int64
	for _, tok := range idSeparators.Split(idPart.String(), -1) {
		if tok == "" {
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, strings.TrimSpace(rest)
}
