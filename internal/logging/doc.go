// Package logging sets up structured JSON logging with size-based file
// rotation for docrag.
//
// Logs go to <data_dir>/logs/docrag.log. Interactive commands may tee them to
// stderr; the MCP server never does, since stdout and stderr belong to the
// protocol stream.
package logging
