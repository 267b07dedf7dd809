// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

// create a table for events emitted by committed executions
const eventTableSchema = `
CREATE TABLE IF NOT EXISTS event (
	height INTEGER NOT NULL,
	eventIndex INTEGER NOT NULL,
	sender TEXT NOT NULL,
	contract TEXT NOT NULL,
	type TEXT NOT NULL,
	attributes TEXT NOT NULL,
	PRIMARY KEY (height, eventIndex)
);

CREATE INDEX IF NOT EXISTS event_contract ON event(contract);
CREATE INDEX IF NOT EXISTS event_type ON event(type);
`
