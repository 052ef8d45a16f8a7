/*
Package log provides structured logging for bpcached using zerolog.

The log package wraps zerolog to provide JSON or console structured
logging, component-specific child loggers, configurable log levels,
and helper functions for common logging patterns. All logs include
timestamps and support filtering by severity level.

Each cache interface logs through a child logger scoped with
WithInterface(selfAddr), so a multi-interface agent's logs can be
filtered per interface. WithFlow and WithEID build child loggers
tagged with a flow or an EID; the cache package does not call them.
*/
package log
