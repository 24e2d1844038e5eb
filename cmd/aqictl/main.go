// Command aqictl classifies AQI values and projects AQI trends offline,
// using the same rules as the advisory service.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
