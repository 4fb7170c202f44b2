// Package logger provides structured logging for httpdispatch using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers carrying structured fields.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("billing").WithComponent("dispatcher")
//	log.Info("dispatch ok", logger.Fields("status", 200))
package logger
