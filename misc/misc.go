package misc

import (
	"os"
)

var serviceInstance string

func GetServiceName() string {
	name := os.Getenv("SERVICE_NAME")
	if name == "" {
		return "industrium"
	}
	return name
}

func GetServiceInstance() string {
	if serviceInstance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serviceInstance = hostname
	}
	return serviceInstance
}
