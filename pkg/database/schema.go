package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the tables and indexes the gateway depends on.
// Every statement is idempotent so startup can run it unconditionally.
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	tables := []string{
		createUsersTable,
		createAppointmentsTable,
	}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createUsersIndexes,
		createAppointmentsIndexes,
	}
	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id VARCHAR(64) PRIMARY KEY,
	first_name VARCHAR(100) NOT NULL DEFAULT '',
	last_name VARCHAR(100) NOT NULL DEFAULT '',
	email VARCHAR(255) UNIQUE,
	phone VARCHAR(32),
	password_hash VARCHAR(255),
	user_type VARCHAR(16) NOT NULL CHECK (user_type IN ('patient', 'doctor')),
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`

const createAppointmentsTable = `
CREATE TABLE IF NOT EXISTS appointments (
	id VARCHAR(64) PRIMARY KEY,
	doctor_id VARCHAR(64) NOT NULL REFERENCES users(id),
	patient_id VARCHAR(64) NOT NULL REFERENCES users(id),
	scheduled_time TIMESTAMP WITH TIME ZONE NOT NULL,
	details TEXT NOT NULL DEFAULT '',
	status VARCHAR(16) NOT NULL DEFAULT 'pending' CHECK (
		status IN ('pending', 'confirmed', 'rejected', 'in_progress', 'completed', 'cancelled', 'expired')
	),
	response_message TEXT,
	cancel_reason TEXT,
	cancelled_by VARCHAR(16),
	prescription TEXT,
	diagnosis TEXT,
	medical_notes TEXT,
	call_started_at TIMESTAMP WITH TIME ZONE,
	call_ended_at TIMESTAMP WITH TIME ZONE,
	call_duration INTEGER,
	expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`

const createUsersIndexes = `
CREATE INDEX IF NOT EXISTS idx_users_user_type ON users(user_type);`

const createAppointmentsIndexes = `
CREATE INDEX IF NOT EXISTS idx_appointments_doctor_id ON appointments(doctor_id);
CREATE INDEX IF NOT EXISTS idx_appointments_patient_id ON appointments(patient_id);
CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status);
CREATE INDEX IF NOT EXISTS idx_appointments_scheduled_time ON appointments(scheduled_time);`
