package sqlinline

const QSelectPageImages = `--sql 62e3c3fc-4e4d-4473-8cd2-bb8d904e955a
select
  page_number,
  coalesce(image_url, ''),
  coalesce(caption, '')
from story_pages
where story_id = $1::uuid
order by page_number asc;
`

const QSelectCharacterImages = `--sql 11e77478-c4dc-4172-af0d-bb70e4ff1fab
select
  name,
  coalesce(role, ''),
  coalesce(reference_image, ''),
  coalesce(is_hero, false)
from story_characters
where story_id = $1::uuid
order by name asc;
`
