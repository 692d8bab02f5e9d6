// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mavlink

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FormatMessage formats a message into a human-readable string
func FormatMessage(m Message) string {
	ts := m.Received
	if ts.IsZero() {
		ts = time.Now()
	}
	result := fmt.Sprintf("[%s] %s", ts.Format("15:04:05.000"), m.Type)
	if m.Counter != 0 {
		result += fmt.Sprintf(" #%d", m.Counter)
	}
	return result + "\n" + FormatFields(m)
}

// FormatFields formats the fields of a message based on its type
func FormatFields(m Message) string {
	f := m.Fields
	switch m.Type {
	case MsgMissionClearAll, MsgMissionRequestList:
		return "  (no payload)\n"

	case MsgMissionCount:
		count, _ := GetFieldUint(f, "count")
		return fmt.Sprintf("  Count: %d\n", count)

	case MsgMissionRequest, MsgMissionRequestInt:
		seq, _ := GetFieldUint(f, "seq")
		return fmt.Sprintf("  Seq: %d\n", seq)

	case MsgMissionItemInt:
		it, err := ItemFromMessage(m)
		if err != nil {
			return fmt.Sprintf("  (invalid: %v)\n", err)
		}
		cmd, _ := GetFieldEnum(f, "command")
		frame, _ := GetFieldEnum(f, "frame")
		return fmt.Sprintf("  Seq: %d, Command: %s, Frame: %s\n  Position: %.7f, %.7f, Alt: %.1fm\n  Params: %g %g %g %g\n",
			it.Seq, cmd, frame, it.Lat, it.Lon, it.Alt, it.Param1, it.Param2, it.Param3, it.Param4)

	case MsgMissionAck:
		result, _ := AckResult(m)
		return fmt.Sprintf("  Result: %s\n", result)

	case MsgMissionCurrent:
		seq, _ := GetFieldUint(f, "seq")
		return fmt.Sprintf("  Current: %d\n", seq)

	default:
		return formatGeneric(f)
	}
}

func formatGeneric(f map[string]interface{}) string {
	if len(f) == 0 {
		return "  (no payload)\n"
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v := f[k]
		if name, ok := GetFieldEnum(f, k); ok {
			v = name
		}
		fmt.Fprintf(&sb, "  %s: %v\n", k, v)
	}
	return sb.String()
}
