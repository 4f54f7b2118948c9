package runner

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// Connection is one named database target from the connections file.
type Connection struct {
	// Driver is the database/sql driver name. Only "sqlite3" is embedded in
	// the daemon; other drivers belong to the editor's own connection layer.
	Driver string `toml:"driver"`
	// DSN is the driver-specific connection string.
	DSN string `toml:"dsn"`
}

// connectionsFile mirrors the TOML layout:
//
//	[connections.local]
//	driver = "sqlite3"
//	dsn = "file:dev.db"
type connectionsFile struct {
	Connections map[string]Connection `toml:"connections"`
}

// LoadConnections reads the named connections from a TOML file.
func LoadConnections(path string) (map[string]Connection, error) {
	var file connectionsFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to read connections file %s: %w", path, err)
	}
	if file.Connections == nil {
		file.Connections = make(map[string]Connection)
	}
	return file.Connections, nil
}

// Names returns the connection names in sorted order.
func Names(conns map[string]Connection) []string {
	names := make([]string, 0, len(conns))
	for name := range conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
