package sqlinline

const QInsertStory = `--sql 2389a3a2-a948-4418-bdf6-d7951fe56d16
insert into stories (
  id,
  source_text,
  file_name,
  settings,
  status,
  current_step,
  created_at,
  updated_at
) values (
  $1::uuid,
  $2::text,
  nullif($3::text, ''),
  $4::jsonb,
  'queued',
  '',
  $5::timestamptz,
  now()
);
`

const QSelectStoryStatus = `--sql 919f7878-f497-471a-8446-a6069ce5e4a3
select
  id::text,
  coalesce(status, ''),
  coalesce(current_step, ''),
  coalesce(error_message, ''),
  result_json,
  updated_at
from stories
where id = $1::uuid
limit 1;
`

const QSelectStorySubmission = `--sql 00e1ea93-3430-4323-8cd4-7a1ad3e1d00e
select
  id::text,
  source_text,
  coalesce(file_name, ''),
  coalesce(settings, '{}'::jsonb),
  created_at
from stories
where id = $1::uuid
limit 1;
`

const QListStories = `--sql e4577776-b838-490a-bf55-1410a775ac70
select
  id::text,
  source_text,
  coalesce(theme, ''),
  coalesce(status, ''),
  created_at
from stories
order by created_at desc
limit $1::int;
`
