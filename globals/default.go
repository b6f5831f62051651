package globals

import "github.com/hashicorp/go-hclog"

var AppLogger = hclog.New(&hclog.LoggerOptions{
	Name:  "mumsspace-chat",
	Level: hclog.LevelFromString("INFO"),
})
