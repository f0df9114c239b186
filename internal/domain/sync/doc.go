// Package sync contains the domain model for marketplace synchronization:
// platform adapter ports, product/variant mappings, inventory snapshots,
// sync results, and the collaborator interfaces (stores, error recovery,
// scheduling) the sync services are wired with.
//
// Following the Ports & Adapters pattern, interfaces are defined here and
// concrete implementations (Amazon, eBay, GORM repositories, the cron
// scheduler) live in the infrastructure layer.
package sync
