// Package connectors provides data source connectors and their factory.
//
// Each connector type lives in its own subpackage and implements the
// driven.Connector port. The orchestrator depends only on the port and
// the factory, never on concrete source types.
package connectors
