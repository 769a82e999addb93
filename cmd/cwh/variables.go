package main

var (
	configFile  string
	logLevel    string
	metricsAddr string
	followPath  string
	groupName   string
	streamName  string
	awsRegion   string
	awsProfile  string
	awsEndpoint string
)
