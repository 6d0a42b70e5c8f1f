// Package file stores artsync settings in a TOML file.
//
// The ConfigStore reloads the file when its modification time changes, so a
// running daemon sees settings written by one-shot commands.
package file
