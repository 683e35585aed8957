// Package mysql persists user profiles in MySQL. Schema changes are applied
// from the embedded deploy/migrations files on startup.
package mysql
