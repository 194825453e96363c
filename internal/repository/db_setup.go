package repository

import (
	"database/sql"
	"log"
)

// CreateTableIfNotExists membuat seluruh skema TaskFlow.
// projects.name diberi UNIQUE supaya race check-then-act pada pembuatan
// proyek tertutup di level storage, bukan di level aplikasi.
func CreateTableIfNotExists(db *sql.DB) {
	query := `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    username VARCHAR(255) NOT NULL UNIQUE,
    email VARCHAR(255) NOT NULL UNIQUE,
    password VARCHAR(255),
    is_google_account BOOLEAN NOT NULL DEFAULT FALSE,
    totp_secret VARCHAR(255),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS statuses (
    user_id INT PRIMARY KEY REFERENCES users (id),
    status INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS projects (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS memberships (
    project_id INT NOT NULL REFERENCES projects (id),
    user_id INT NOT NULL REFERENCES users (id),
    permission INT NOT NULL DEFAULT 0,
    invitation_state INT NOT NULL DEFAULT 0,
    PRIMARY KEY (project_id, user_id)
);

CREATE TABLE IF NOT EXISTS task_groups (
    id SERIAL PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS task_infos (
    id SERIAL PRIMARY KEY,
    status INT NOT NULL DEFAULT 0,
    priority INT NOT NULL DEFAULT 0,
    title VARCHAR(255) NOT NULL,
    description TEXT,
    deadline TIMESTAMP,
    covered BOOLEAN NOT NULL DEFAULT FALSE,
    task_group_id INT NOT NULL REFERENCES task_groups (id)
);

CREATE TABLE IF NOT EXISTS tasks (
    id SERIAL PRIMARY KEY,
    project_id INT NOT NULL REFERENCES projects (id),
    task_info_id INT NOT NULL REFERENCES task_infos (id),
    creator_id INT NOT NULL REFERENCES users (id)
);

CREATE TABLE IF NOT EXISTS subtasks (
    id SERIAL PRIMARY KEY,
    task_id INT NOT NULL REFERENCES tasks (id),
    task_info_id INT NOT NULL REFERENCES task_infos (id)
);

CREATE TABLE IF NOT EXISTS task_group_members (
    task_group_id INT NOT NULL REFERENCES task_groups (id),
    user_id INT NOT NULL REFERENCES users (id),
    PRIMARY KEY (task_group_id, user_id)
);
    `

	_, err := db.Exec(query)
	if err != nil {
		log.Fatalf("Error creating table: %v", err)
	}
}

// DeleteAllTable menghapus semua tabel, urutan mengikuti foreign key.
func DeleteAllTable(db *sql.DB) {
	query := `
    DROP TABLE IF EXISTS task_group_members;
    DROP TABLE IF EXISTS subtasks;
    DROP TABLE IF EXISTS tasks;
    DROP TABLE IF EXISTS task_infos;
    DROP TABLE IF EXISTS task_groups;
    DROP TABLE IF EXISTS memberships;
    DROP TABLE IF EXISTS projects;
    DROP TABLE IF EXISTS statuses;
    DROP TABLE IF EXISTS users;
    `

	_, err := db.Exec(query)
	if err != nil {
		log.Fatalf("Error deleting table: %v", err)
	}
}
