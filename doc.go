/*
Package remindgate documents the remindgate module.

This module is CLI-first and ships the remindgate command, an MCP
gateway in front of the remindctl reminders CLI:

	go install remindgate/cmd/remindgate@latest

Most implementation packages in this repository are internal and are not
a stable public Go API.
*/
package remindgate
