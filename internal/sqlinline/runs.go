package sqlinline

// QInsertRun fails with a unique violation while another run of the project
// is queued or running (pipeline_runs_active_idx).
const QInsertRun = `--sql 212b3bc0-4aff-48e6-892a-dee01cf20795
insert into pipeline_runs (id, project_id, status, created_at, updated_at)
values ($1::uuid, $2::uuid, 'queued', now(), now())
returning id, project_id, status, coalesce(error_message, ''), created_at, updated_at;
`

const QClaimRun = `--sql 55558d7f-a6fe-46a3-b1f7-4357c4b521b1
with next_run as (
    select id
    from pipeline_runs
    where status = 'queued'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update pipeline_runs
    set status = 'running', attempts = attempts + 1, updated_at = now()
    where id in (select id from next_run)
    returning id, project_id, status, coalesce(error_message, ''), created_at, updated_at
)
select * from updated;
`

const QFinishRun = `--sql 24008b07-7856-4790-8545-38214ae6deb5
update pipeline_runs
set status = $2::text,
    error_message = nullif($3::text, ''),
    updated_at = now()
where id = $1::uuid and status = 'running';
`

const QLatestRun = `--sql 855dc634-f90b-4599-bdbe-dc051fb4878e
select id, project_id, status, coalesce(error_message, ''), created_at, updated_at
from pipeline_runs
where project_id = $1::uuid
order by created_at desc
limit 1;
`

// QRequeueStaleRuns returns runs abandoned by a crashed worker to the queue.
const QRequeueStaleRuns = `--sql 3797f343-003c-490c-9626-423ec7c41152
update pipeline_runs
set status = 'queued', updated_at = now()
where status = 'running' and updated_at < now() - make_interval(secs => $1::int);
`

// QRequeueRun hands a run interrupted by worker shutdown back to the queue.
const QRequeueRun = `--sql 6b0f2e9a-3c41-4d7e-a1f5-92c8d0b7e614
update pipeline_runs
set status = 'queued', updated_at = now()
where id = $1::uuid and status = 'running';
`
