// Package config provides configuration management for the Mars Rovers mission server.
//
// The config package handles:
//   - Loading mission configurations from JSON files
//   - Configuration validation
//   - Default configuration selection
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Mission configurations are stored as JSON files in the configs directory.
// Each configuration defines:
//   - Grid dimensions (width and height; the grid spans 0..width x 0..height)
//   - Lost positions remembered from earlier missions (optional)
//   - A plan of rovers to deploy, each with a start and instruction string
//
// Example:
//
//	{
//	  "name": "sample",
//	  "description": "5x3 plateau with the three sample rovers",
//	  "width": 5,
//	  "height": 3,
//	  "rovers": [
//	    {"x": 1, "y": 1, "orientation": "E", "instructions": "RFRFRFRF"}
//	  ]
//	}
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	missionConfig, err := manager.LoadConfig("sample")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// The default configuration is sample.json when present, otherwise the first
// valid file, otherwise a built-in 5x3 mission.
package config
