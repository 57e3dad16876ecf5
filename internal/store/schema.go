package store

const Schema = `
create table if not exists completed_unit (
	sink text not null,
	unit text not null,
	records integer not null,
	completed_at integer not null,
	primary key (sink, unit)
);

create table if not exists dedup_key (
	sink text not null,
	key text not null,
	primary key (sink, key)
) without rowid;

create table if not exists run (
	id text primary key,
	sink text not null,
	mode text not null,
	started_at integer not null,
	finished_at integer,
	outcome text,
	attempted integer not null default 0,
	succeeded integer not null default 0,
	failed integer not null default 0,
	fetched integer not null default 0,
	written integer not null default 0
);
`
