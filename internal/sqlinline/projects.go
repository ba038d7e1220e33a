package sqlinline

const QInsertProject = `--sql 567b18c9-8aeb-4658-b61f-ee11d5b9e7ac
insert into video_projects (id, title, status, document, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::jsonb, $5::timestamptz, $5::timestamptz);
`

const QSelectProject = `--sql b1ccd1ac-e184-4ce5-a315-b24f2a8f5cc2
select document
from video_projects
where id = $1::uuid
limit 1;
`

// QUpdateProject bumps revision so concurrent writers can detect each other.
const QUpdateProject = `--sql 2dcc024f-7fee-4238-add4-613383da88af
update video_projects
set title = $2::text,
    status = $3::text,
    document = $4::jsonb,
    revision = revision + 1,
    updated_at = $5::timestamptz
where id = $1::uuid;
`
