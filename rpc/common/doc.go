// Package common provides the building blocks shared by the client and the
// transport packages. It translates single purpose operations into the request
// messages of the etcd v3 KV service, and holds configuration and logging.
//
// The package focuses on:
//   - Transaction construction (compare predicates + conditional operation lists)
//   - Configuration of the client
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Mutation / Predicate: Store independent descriptions of one write (put or
//     delete range) and of one value comparison.
//
//   - BuildConditional / BuildUnconditional / Interpret: The transaction builder.
//     It encodes mutations as etcd RequestOps and predicates as value equality
//     Compares, and decodes which branch of a transaction the store executed.
//     A transaction without predicates always executes its success branch, which
//     is used to apply many mutations atomically.
//
//   - NewPutRequest / NewRangeRequest / NewDeleteRangeRequest: Factories for
//     operations that are issued as single RPCs.
//
//   - ClientConfig: Endpoints, timeouts and the BulkPut batch size.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
